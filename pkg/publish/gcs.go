package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/catalog"
)

// DefaultPrefix is the folder published images are stored under.
var DefaultPrefix = "tagged"

// GCS stores published images in a Cloud Storage bucket, as <prefix>/<id>.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS returns an asset store for bucket.
func NewGCS(client *storage.Client, bucket string, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket must be provided")
	}
	return &GCS{bucket: client.Bucket(bucket), name: bucket, prefix: prefix}, nil
}

func (g *GCS) object(id string) string {
	return path.Join(g.prefix, id)
}

// URL returns the public address of the object for id.
func (g *GCS) URL(id string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.name, g.object(id))
}

// Exists reports whether an image with id has already been published.
func (g *GCS) Exists(ctx context.Context, id string) (bool, error) {
	_, err := g.bucket.Object(g.object(id)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("attrs: %w", err)
	}
	return true, nil
}

// Upload publishes the image at p with its tags and caption as object metadata.
// An object created concurrently by another writer is left in place.
func (g *GCS) Upload(ctx context.Context, p string, tags []string, caption string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	id := catalog.ID(p)
	w := g.bucket.Object(g.object(id)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType(p)
	w.Metadata = map[string]string{
		"filename": filepath.Base(p),
		"tags":     strings.Join(tags, ","),
		"caption":  caption,
	}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy: %w", err)
	}

	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			klog.Infof("object %s already exists", g.object(id))
			return g.URL(id), nil
		}
		return "", fmt.Errorf("close: %w", err)
	}
	return g.URL(id), nil
}

func contentType(p string) string {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == ".jpg" {
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
