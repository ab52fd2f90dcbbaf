// Package autotag describes and tags a folder of images, one at a time, persisting after each.
package autotag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/ai"
	"github.com/tstromberg/tagflow/pkg/catalog"
	"github.com/tstromberg/tagflow/pkg/vocab"
)

var (
	// ErrSourceNotFound is returned when the source folder is missing; nothing is processed.
	ErrSourceNotFound = errors.New("source folder not found")
	// ErrPersist is returned when the catalog cannot be written; the batch stops.
	ErrPersist = errors.New("state persistence failed")
)

// Config holds configuration for a tagging run.
type Config struct {
	SourceDir      string
	CatalogPath    string
	VocabularyPath string
	// Delay is the pause after every item, to stay under model rate limits.
	Delay time.Duration
	// Reset deletes the catalog before the first run, forcing full reprocessing.
	Reset bool
	// WriteKeywords embeds the recorded tags into the source images.
	WriteKeywords bool
	// DryRun logs keyword changes instead of modifying source images.
	DryRun bool
}

// Persister loads and saves the catalog document.
type Persister interface {
	Load(sourceFolder string, now time.Time) *catalog.Document
	Save(d *catalog.Document) error
	Reset() error
}

// KeywordWriter embeds tags into an image file.
type KeywordWriter interface {
	WriteKeywords(path string, tags []string) error
}

// Orchestrator runs the describe, tag, record, persist and throttle cycle.
type Orchestrator struct {
	c         *Config
	describer ai.Describer
	tagger    ai.Tagger
	store     Persister
	fs        afero.Fs
	keywords  KeywordWriter
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	reset     bool
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithStore replaces the catalog store at Config.CatalogPath.
func WithStore(p Persister) Option {
	return func(o *Orchestrator) { o.store = p }
}

// WithFs sets the filesystem the vocabulary is read from.
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithKeywordWriter sets how tags are embedded when Config.WriteKeywords is enabled.
func WithKeywordWriter(k KeywordWriter) Option {
	return func(o *Orchestrator) { o.keywords = k }
}

// WithClock sets the source of processing timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep sets how the inter-item delay is waited out.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// New returns an orchestrator for c.
func New(c *Config, d ai.Describer, t ai.Tagger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		c:         c,
		describer: d,
		tagger:    t,
		store:     catalog.New(c.CatalogPath),
		fs:        afero.NewOsFs(),
		now:       time.Now,
		sleep:     sleep,
		reset:     c.Reset,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every image in the source folder that is not yet in the catalog.
// The returned document reflects the last state handed to the store.
func (o *Orchestrator) Run(ctx context.Context) (*catalog.Document, error) {
	if o.reset {
		o.reset = false
		if err := o.store.Reset(); err != nil {
			klog.Errorf("unable to purge catalog: %v", err)
		} else {
			klog.Infof("reset enabled: existing catalog purged")
		}
	}

	st, err := os.Stat(o.c.SourceDir)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%q: %w", o.c.SourceDir, ErrSourceNotFound)
	}

	v := vocab.Load(o.fs, o.c.VocabularyPath)
	doc := o.store.Load(o.c.SourceDir, o.now())

	candidates, err := Candidates(o.c.SourceDir)
	if err != nil {
		return doc, fmt.Errorf("candidates: %w", err)
	}

	remaining := Remaining(candidates, doc.Processed())
	klog.Infof("processing queue: %d images", len(remaining))
	klog.Infof("previously processed: %d images", len(doc.Items))

	recorded, skipped := 0, 0
	for n, path := range remaining {
		if err := ctx.Err(); err != nil {
			return doc, err
		}

		name := filepath.Base(path)
		klog.Infof("processing %d/%d: %s", n+1, len(remaining), name)

		item, err := o.process(ctx, path, v)
		// A model call cut short by cancellation is not a degraded result; leave the item for the next run.
		if ctx.Err() != nil {
			klog.Warningf("interrupted while processing %s, not recording it", name)
			return doc, ctx.Err()
		}
		if err == nil {
			err = doc.Append(item)
		}

		if err != nil {
			skipped++
			klog.Errorf("processing failed for %s: %v", name, err)
		} else {
			if err := o.store.Save(doc); err != nil {
				klog.Errorf("critical: state persistence failed: %v", err)
				return doc, fmt.Errorf("%w: %w", ErrPersist, err)
			}
			recorded++
			klog.Infof("description for %s:\n%s", name, item.Description)
			klog.Infof("tags for %s: %s", name, tagList(item.Tags))
			o.embed(path, item.Tags)
		}

		klog.V(1).Infof("waiting %s before the next image ...", o.c.Delay)
		if err := o.sleep(ctx, o.c.Delay); err != nil {
			return doc, err
		}
	}

	klog.Infof("run complete: %d recorded, %d skipped, %d total in catalog", recorded, skipped, len(doc.Items))
	return doc, nil
}

// process describes and tags one image. Model failures degrade the result;
// any other failure, including a panic, is returned so the item can be skipped.
func (o *Orchestrator) process(ctx context.Context, path string, v *vocab.Vocabulary) (item catalog.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	desc, err := o.describer.Describe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return catalog.Item{}, ctx.Err()
		}
		klog.Warningf("vision model call failed for %s: %v", path, err)
		desc = catalog.DescriptionUnavailable
	}

	tags, err := o.tagger.Tag(ctx, desc, v)
	if err != nil {
		klog.Warningf("tagging model call failed for %s: %v", path, err)
		tags = []string{}
	}

	return catalog.NewItem(filepath.Base(path), desc, allowed(tags, v), o.now()), nil
}

// allowed drops any tag outside v, and repeats, whatever the tagger returned.
func allowed(tags []string, v *vocab.Vocabulary) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		if !v.Contains(t) || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (o *Orchestrator) embed(path string, tags []string) {
	if !o.c.WriteKeywords || o.keywords == nil || len(tags) == 0 {
		return
	}
	if o.c.DryRun {
		klog.Infof("dry-run: would add keywords to %s: %v", path, tags)
		return
	}
	if err := o.keywords.WriteKeywords(path, tags); err != nil {
		klog.Errorf("failed to write keywords for %s: %v", path, err)
	}
}

func tagList(tags []string) string {
	if len(tags) == 0 {
		return "no tags found"
	}
	return strings.Join(tags, ", ")
}

// sleep waits for d, returning early if ctx is done.
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
