// publish uploads tagged images to a Cloud Storage bucket, skipping those already published.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/catalog"
	"github.com/tstromberg/tagflow/pkg/config"
	"github.com/tstromberg/tagflow/pkg/publish"
)

var (
	configPath  = flag.String("config", "", "Location of an optional config file (yaml, json or toml)")
	inDir       = flag.String("in", "", "Location of the folder of tagged images")
	catalogPath = flag.String("catalog", "", "Location of the JSON metadata catalog")
	bucket      = flag.String("bucket", "", "Cloud Storage bucket to publish to")
	prefix      = flag.String("prefix", "", "folder within the bucket")
	collection  = flag.String("firestore-collection", "", "optional Firestore collection to index published assets in")
	delay       = flag.Duration("delay", 0, "pause between uploads")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	s, err := config.Load(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	override(s)

	doc, err := catalog.Read(s.CatalogPath)
	if err != nil {
		klog.Exitf("catalog: %v", err)
	}
	klog.Infof("publishing %d items from %s to gs://%s/%s", len(doc.Items), s.CatalogPath, s.Bucket, s.BucketPrefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := storage.NewClient(ctx)
	if err != nil {
		klog.Exitf("storage client: %v", err)
	}
	defer sc.Close()

	store, err := publish.NewGCS(sc, s.Bucket, s.BucketPrefix)
	if err != nil {
		klog.Exitf("asset store: %v", err)
	}

	var idx publish.Indexer
	if s.FirestoreCollection != "" {
		if s.GCPProject == "" {
			klog.Exitf("a GCP project is required to index in Firestore")
		}
		fc, err := firestore.NewClient(ctx, s.GCPProject)
		if err != nil {
			klog.Exitf("firestore client: %v", err)
		}
		defer fc.Close()

		idx, err = publish.NewFirestore(fc, s.FirestoreCollection)
		if err != nil {
			klog.Exitf("indexer: %v", err)
		}
	}

	p := publish.New(&publish.Config{SourceDir: s.SourceDir, Delay: s.UploadDelay}, store, idx)
	if _, err := p.Publish(ctx, doc); err != nil {
		if errors.Is(err, context.Canceled) {
			klog.Infof("interrupted")
			return
		}
		klog.Exitf("publish failed: %v", err)
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
		case "bucket":
			s.Bucket = *bucket
		case "prefix":
			s.BucketPrefix = *prefix
		case "firestore-collection":
			s.FirestoreCollection = *collection
		case "delay":
			s.UploadDelay = *delay
		}
	})
}
