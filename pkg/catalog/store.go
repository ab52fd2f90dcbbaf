package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// BackupSuffix is appended to the catalog path to name the single backup generation.
var BackupSuffix = ".bak"

// Store reads and writes a catalog document at a fixed path.
type Store struct {
	path string
}

// New returns a store for the catalog at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the catalog document.
func (s *Store) Path() string {
	return s.path
}

// BackupPath returns the location of the previous revision of the catalog.
func (s *Store) BackupPath() string {
	return s.path + BackupSuffix
}

// Load returns the persisted document, or a fresh one if it is missing or unreadable.
func (s *Store) Load(sourceFolder string, now time.Time) *Document {
	d, err := Read(s.path)
	if err == nil {
		klog.Infof("resuming from %s: %d items already processed", s.path, len(d.Items))
		return d
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		klog.V(1).Infof("no catalog at %s, starting fresh", s.path)
	case errors.Is(err, ErrCorrupt):
		klog.Warningf("catalog corruption detected, starting fresh: %v", err)
	default:
		klog.Errorf("unable to read catalog, starting fresh: %v", err)
	}
	return NewDocument(sourceFolder, now)
}

// ErrCorrupt is returned by Read when the catalog is not a valid document.
var ErrCorrupt = errors.New("corrupt catalog")

// Read parses the catalog at path, without falling back to an empty document.
func Read(path string) (*Document, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	d := &Document{}
	if err := json.Unmarshal(bs, d); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}

	if d.RunInfo.StartedAt.IsZero() && len(d.Items) == 0 {
		return nil, fmt.Errorf("%s: %w: no run_info or items", path, ErrCorrupt)
	}

	if d.Items == nil {
		d.Items = []Item{}
	}
	for i := range d.Items {
		if d.Items[i].Tags == nil {
			d.Items[i].Tags = []string{}
		}
	}
	return d, nil
}

// Save writes d to disk, first copying the previous revision to the backup slot.
// A failed backup is logged; a failed write is returned and leaves the previous revision in place.
func (s *Store) Save(d *Document) error {
	if _, err := os.Stat(s.path); err == nil {
		if err := copy.Copy(s.path, s.BackupPath()); err != nil {
			klog.Errorf("backup creation failed: %v", err)
		}
	}

	bs, err := Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	return writeAtomic(s.path, bs)
}

var rename = os.Rename

// writeAtomic replaces path with bs through a synced temp file in the same directory,
// so an interrupted write never leaves a truncated document behind.
func writeAtomic(path string, bs []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(bs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Reset removes the catalog document. A missing document is not an error.
func (s *Store) Reset() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Marshal renders d the way it is stored on disk.
func Marshal(d *Document) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
