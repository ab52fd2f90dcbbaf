// Package publish uploads tagged images and their captions to a remote asset store.
package publish

import (
	"context"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/catalog"
)

// AssetStore is a remote store of published images, keyed by item ID.
type AssetStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Upload(ctx context.Context, path string, tags []string, caption string) (string, error)
}

// Asset describes a published image.
type Asset struct {
	ID       string    `firestore:"id"`
	Filename string    `firestore:"filename"`
	URL      string    `firestore:"url"`
	Tags     []string  `firestore:"tags"`
	Caption  string    `firestore:"caption"`
	Uploaded time.Time `firestore:"uploaded"`
}

// Indexer records published assets, for example in a database.
type Indexer interface {
	Index(ctx context.Context, a Asset) error
}

// Config holds configuration for a publishing run.
type Config struct {
	SourceDir string
	// Delay is the pause after every upload attempt.
	Delay time.Duration
}

// Stats counts the outcome of a publishing run.
type Stats struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Publisher pushes catalog items to an AssetStore.
type Publisher struct {
	c       *Config
	store   AssetStore
	indexer Indexer
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// New returns a publisher. indexer may be nil.
func New(c *Config, s AssetStore, indexer Indexer) *Publisher {
	return &Publisher{c: c, store: s, indexer: indexer, now: time.Now, sleep: sleep}
}

// Publish uploads every item of d that the store does not already have.
// Individual failures are logged and counted; only ctx cancellation stops the run.
func (p *Publisher) Publish(ctx context.Context, d *catalog.Document) (Stats, error) {
	st := Stats{}
	for _, i := range d.Items {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		id := catalog.ID(i.Filename)
		exists, err := p.store.Exists(ctx, id)
		if err != nil {
			klog.Errorf("unable to check %s: %v", i.Filename, err)
			st.Failed++
			continue
		}
		if exists {
			klog.Infof("skipping %s - already exists in the asset store", i.Filename)
			st.Skipped++
			continue
		}

		klog.Infof("uploading %s ...", i.Filename)
		path := filepath.Join(p.c.SourceDir, i.Filename)
		url, err := p.store.Upload(ctx, path, i.Tags, i.Description)
		if err != nil {
			klog.Errorf("failed to upload %s: %v", path, err)
			st.Failed++
		} else {
			klog.Infof("success: %s", url)
			st.Uploaded++
			p.index(ctx, Asset{ID: id, Filename: i.Filename, URL: url, Tags: i.Tags, Caption: i.Description, Uploaded: p.now()})
		}

		if err := p.sleep(ctx, p.c.Delay); err != nil {
			return st, err
		}
	}

	klog.Infof("publish complete: %d uploaded, %d skipped, %d failed", st.Uploaded, st.Skipped, st.Failed)
	return st, nil
}

func (p *Publisher) index(ctx context.Context, a Asset) {
	if p.indexer == nil {
		return
	}
	if err := p.indexer.Index(ctx, a); err != nil {
		klog.Errorf("failed to index %s: %v", a.ID, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
