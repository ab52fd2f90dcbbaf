package autotag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Settle is how long the source folder must be quiet before a watch-triggered run starts.
var Settle = 2 * time.Second

// Watch re-runs the orchestrator whenever images are added to the source folder.
// Only a persistence failure or ctx cancellation ends the watch.
func (o *Orchestrator) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(o.c.SourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", o.c.SourceDir, err)
	}
	klog.Infof("watching %s for new images ...", o.c.SourceDir)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %s", event)
			if !Accepted(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(Settle)
			}
		case <-pending:
			pending = nil
			if _, err := o.Run(ctx); err != nil {
				if errors.Is(err, ErrPersist) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				klog.Errorf("run failed: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
