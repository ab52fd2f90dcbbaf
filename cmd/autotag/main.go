// autotag describes product images with a vision model and tags them from a controlled vocabulary.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/ai"
	"github.com/tstromberg/tagflow/pkg/autotag"
	"github.com/tstromberg/tagflow/pkg/config"
	"github.com/tstromberg/tagflow/pkg/report"
)

var (
	configPath    = flag.String("config", "", "Location of an optional config file (yaml, json or toml)")
	inDir         = flag.String("in", "", "Location of the folder of images to tag")
	catalogPath   = flag.String("catalog", "", "Location of the JSON metadata catalog")
	vocabPath     = flag.String("vocab", "", "Location of the JSON file listing valid tags")
	delay         = flag.Duration("delay", 0, "pause between images, to respect model rate limits")
	reset         = flag.Bool("reset", false, "purge the existing catalog and start fresh")
	provider      = flag.String("provider", "", "model provider: gemini or ollama")
	visionModel   = flag.String("vision-model", "", "model used to describe images")
	taggingModel  = flag.String("tagging-model", "", "model used to pick tags")
	writeKeywords = flag.Bool("write-keywords", false, "embed tags into the images as IPTC keywords")
	dryRun        = flag.Bool("n", false, "dry-run mode, don't modify images")
	watchFlag     = flag.Bool("watch", false, "watch the input folder and tag new images as they arrive")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	s, err := config.Load(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	override(s)

	c := &autotag.Config{
		SourceDir:      s.SourceDir,
		CatalogPath:    s.CatalogPath,
		VocabularyPath: s.VocabularyPath,
		Delay:          s.Delay,
		Reset:          s.Reset,
		WriteKeywords:  *writeKeywords,
		DryRun:         *dryRun,
	}
	klog.Infof("autotag starting: %s -> %s", c.SourceDir, c.CatalogPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, t, err := ai.NewBackend(ctx, ai.BackendConfig{
		Provider:     ai.Provider(s.Provider),
		VisionModel:  s.VisionModel,
		TaggingModel: s.TaggingModel,
		Image:        ai.ImageOpts{MaxY: s.ImageMaxY, Quality: ai.DefaultImageOpts.Quality},
		APIKey:       s.GoogleAPIKey,
		Project:      s.GCPProject,
		Location:     s.GCPLocation,
		BaseURL:      s.OllamaURL,
		Timeout:      s.ModelTimeout,
	})
	if err != nil {
		klog.Exitf("models: %v", err)
	}

	opts := []autotag.Option{}
	if c.WriteKeywords {
		e, err := autotag.NewExiftool()
		if err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer func() {
			if err := e.Close(); err != nil {
				klog.Errorf("Failed to close exiftool: %v", err)
			}
		}()
		opts = append(opts, autotag.WithKeywordWriter(e))
	}

	o := autotag.New(c, d, t, opts...)
	doc, err := o.Run(ctx)
	switch {
	case errors.Is(err, autotag.ErrSourceNotFound):
		klog.Exitf("target directory not found, aborting: %v", err)
	case errors.Is(err, context.Canceled):
		klog.Infof("interrupted; progress is saved in %s", c.CatalogPath)
		return
	case err != nil:
		klog.Exitf("run failed: %v", err)
	}

	if err := report.Summary(os.Stdout, doc, c.CatalogPath); err != nil {
		klog.Errorf("summary: %v", err)
	}

	if *watchFlag {
		if err := o.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			klog.Exitf("watch failed: %v", err)
		}
	}
}

// override applies explicitly set flags on top of loaded settings.
func override(s *config.Settings) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			s.SourceDir = *inDir
		case "catalog":
			s.CatalogPath = *catalogPath
		case "vocab":
			s.VocabularyPath = *vocabPath
		case "delay":
			s.Delay = *delay
		case "reset":
			s.Reset = *reset
		case "provider":
			s.Provider = *provider
		case "vision-model":
			s.VisionModel = *visionModel
		case "tagging-model":
			s.TaggingModel = *taggingModel
		}
	})
}
