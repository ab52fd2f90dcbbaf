package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func TestLoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "meta.json"))
	d := s.Load("images/menswear", testTime)

	want := NewDocument("images/menswear", testTime)
	if diff := cmp.Diff(want, d, cmpopts.IgnoreUnexported(Document{})); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if d.RunInfo.LastProcessed != nil {
		t.Errorf("LastProcessed = %q, want nil", *d.RunInfo.LastProcessed)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	if err := os.WriteFile(path, []byte(`{"run_info": {`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := New(path).Load("src", testTime)
	if len(d.Items) != 0 {
		t.Errorf("Load() returned %d items, want 0", len(d.Items))
	}
	if d.RunInfo.SourceFolder != "src" {
		t.Errorf("SourceFolder = %q, want %q", d.RunInfo.SourceFolder, "src")
	}
	if len(d.Processed()) != 0 {
		t.Errorf("Processed() = %v, want empty", d.Processed())
	}

	if _, err := Read(path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Read() error = %v, want ErrCorrupt", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data", "meta.json"))
	d := s.Load("src", testTime)
	if err := d.Append(NewItem("a.jpg", "a white vest", []string{"vest"}, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := d.Append(NewItem("b.png", DescriptionUnavailable, nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Load("other", testTime.Add(time.Hour))
	if diff := cmp.Diff(d, got, cmpopts.IgnoreUnexported(Document{})); diff != "" {
		t.Errorf("Load() after Save mismatch (-want +got):\n%s", diff)
	}
	if got.RunInfo.TotalItems != len(got.Items) {
		t.Errorf("TotalItems = %d, want %d", got.RunInfo.TotalItems, len(got.Items))
	}
	if *got.RunInfo.LastProcessed != "b.png" {
		t.Errorf("LastProcessed = %q, want b.png", *got.RunInfo.LastProcessed)
	}
}

func TestSaveRotatesBackup(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "meta.json"))
	d := s.Load("src", testTime)

	if err := d.Append(NewItem("a.jpg", "first", nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(s.BackupPath()); err == nil {
		t.Errorf("backup exists after first save, want none")
	}

	first, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := d.Append(NewItem("b.jpg", "second", nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backup, err := os.ReadFile(s.BackupPath())
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if diff := cmp.Diff(string(first), string(backup)); diff != "" {
		t.Errorf("backup is not the previous revision (-want +got):\n%s", diff)
	}

	main, err := Read(s.Path())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(main.Items) != 2 {
		t.Errorf("main has %d items, want 2", len(main.Items))
	}
}

func TestSaveWriteFailure(t *testing.T) {
	// A directory in place of the document makes the final write fail.
	path := filepath.Join(t.TempDir(), "meta.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := New(path).Save(NewDocument("src", testTime)); err == nil {
		t.Errorf("Save() = nil, want error")
	}
}

func TestSaveFailureKeepsPreviousRevision(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "meta.json"))
	d := s.Load("src", testTime)
	if err := d.Append(NewItem("a.jpg", "first", nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	old := rename
	rename = func(string, string) error { return errors.New("killed mid-write") }
	defer func() { rename = old }()

	if err := d.Append(NewItem("b.jpg", "second", nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Save(d); err == nil {
		t.Fatalf("Save() = nil, want error")
	}

	got, err := Read(s.Path())
	if err != nil {
		t.Fatalf("Read after failed save: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Filename != "a.jpg" {
		t.Errorf("main holds %+v, want the previous revision", got.Items)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestReadRejectsForeignDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	legacy := `{"metadata": {"total_images": 1}, "images": [{"filename": "a.jpg"}]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Read(path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Read() error = %v, want ErrCorrupt", err)
	}
	if d := New(path).Load("src", testTime); d.RunInfo.SourceFolder != "src" || len(d.Items) != 0 {
		t.Errorf("Load() = %+v, want a fresh document", d)
	}
}

func TestReset(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "meta.json"))
	if err := s.Reset(); err != nil {
		t.Errorf("Reset() on missing file = %v, want nil", err)
	}

	d := s.Load("src", testTime)
	if err := d.Append(NewItem("a.jpg", "x", nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if got := s.Load("src", testTime).Processed(); len(got) != 0 {
		t.Errorf("Processed() after reset = %v, want empty", got)
	}
}

func TestMarshalKeepsHTML(t *testing.T) {
	d := NewDocument("src", testTime)
	if err := d.Append(NewItem("a.jpg", `bandana that reads "fabiani" & more`, nil, testTime)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	bs, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `"description": "bandana that reads \"fabiani\" & more"`
	if !strings.Contains(string(bs), want) {
		t.Errorf("Marshal() = %s, want it to contain %s", bs, want)
	}
	if !strings.Contains(string(bs), `"last_processed": "a.jpg"`) {
		t.Errorf("Marshal() = %s, want last_processed", bs)
	}
}
