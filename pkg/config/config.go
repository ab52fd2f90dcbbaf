// Package config loads tagflow settings from defaults, an optional file, and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// EnvPrefix is the prefix of environment variables that override settings, e.g. TAGFLOW_SOURCE_DIR.
var EnvPrefix = "TAGFLOW"

// Settings holds every configurable value for the tagflow commands.
type Settings struct {
	SourceDir      string        `mapstructure:"source_dir"`
	CatalogPath    string        `mapstructure:"catalog_path"`
	VocabularyPath string        `mapstructure:"vocabulary_path"`
	Delay          time.Duration `mapstructure:"delay"`
	Reset          bool          `mapstructure:"reset"`

	Provider     string        `mapstructure:"provider"`
	VisionModel  string        `mapstructure:"vision_model"`
	TaggingModel string        `mapstructure:"tagging_model"`
	OllamaURL    string        `mapstructure:"ollama_url"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	GCPProject   string        `mapstructure:"gcp_project"`
	GCPLocation  string        `mapstructure:"gcp_location"`
	ImageMaxY    int           `mapstructure:"image_max_y"`
	ModelTimeout time.Duration `mapstructure:"model_timeout"`

	Bucket              string        `mapstructure:"bucket"`
	BucketPrefix        string        `mapstructure:"bucket_prefix"`
	FirestoreCollection string        `mapstructure:"firestore_collection"`
	UploadDelay         time.Duration `mapstructure:"upload_delay"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("source_dir", "images/menswear")
	v.SetDefault("catalog_path", "data/image_metadata.json")
	v.SetDefault("vocabulary_path", "data/categories.json")
	v.SetDefault("delay", 3*time.Second)
	v.SetDefault("reset", false)

	v.SetDefault("provider", "gemini")
	v.SetDefault("vision_model", "")
	v.SetDefault("tagging_model", "")
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("google_api_key", "")
	v.SetDefault("gcp_project", "")
	v.SetDefault("gcp_location", "us-central1")
	v.SetDefault("image_max_y", 640)
	v.SetDefault("model_timeout", 2*time.Minute)

	v.SetDefault("bucket", "")
	v.SetDefault("bucket_prefix", "tagged")
	v.SetDefault("firestore_collection", "")
	v.SetDefault("upload_delay", time.Second)
}

// Load reads settings. A .env file in the working directory is applied to the environment first.
// path may be empty; a named file that does not exist is an error.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		klog.Warningf("unable to load .env: %v", err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// GOOGLE_AI_API_KEY is honored as well.
	if err := v.BindEnv("google_api_key", EnvPrefix+"_GOOGLE_API_KEY", "GOOGLE_AI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		klog.Infof("loaded configuration from %s", v.ConfigFileUsed())
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return s, nil
}
