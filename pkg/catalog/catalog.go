// Package catalog persists the description and tags generated for each image.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DescriptionUnavailable is recorded when the vision model fails to describe an image.
const DescriptionUnavailable = "Error: Unable to retrieve description."

// ErrDuplicate is returned when appending an item whose filename is already recorded.
var ErrDuplicate = errors.New("duplicate filename")

// RunInfo summarizes the state of a catalog.
type RunInfo struct {
	TotalItems    int       `json:"total_items"`
	StartedAt     time.Time `json:"started_at"`
	SourceFolder  string    `json:"source_folder"`
	LastProcessed *string   `json:"last_processed"`
}

// Item is the generated metadata for a single image.
type Item struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Document is the root of a catalog file. Items are kept in processing order.
type Document struct {
	RunInfo RunInfo `json:"run_info"`
	Items   []Item  `json:"items"`

	// seen indexes Items by filename; rebuilt when it falls out of step with Items.
	seen map[string]bool
}

// NewDocument returns an empty document for a run over sourceFolder.
func NewDocument(sourceFolder string, now time.Time) *Document {
	return &Document{
		RunInfo: RunInfo{
			StartedAt:    now,
			SourceFolder: sourceFolder,
		},
		Items: []Item{},
	}
}

// NewItem builds an item for filename, deriving its ID from the name.
func NewItem(filename string, description string, tags []string, now time.Time) Item {
	if tags == nil {
		tags = []string{}
	}
	return Item{
		ID:          ID(filename),
		Filename:    filename,
		Description: description,
		Tags:        tags,
		ProcessedAt: now,
	}
}

// ID returns the stable identifier for filename: its base name without the extension.
func ID(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Processed returns the set of filenames already present in the document.
func (d *Document) Processed() map[string]bool {
	seen := make(map[string]bool, len(d.Items))
	for _, i := range d.Items {
		seen[i.Filename] = true
	}
	return seen
}

// Append records an item and updates the run info.
func (d *Document) Append(i Item) error {
	if d.seen == nil || len(d.seen) != len(d.Items) {
		d.seen = d.Processed()
	}
	if d.seen[i.Filename] {
		return fmt.Errorf("%s: %w", i.Filename, ErrDuplicate)
	}

	d.Items = append(d.Items, i)
	d.seen[i.Filename] = true
	last := i.Filename
	d.RunInfo.LastProcessed = &last
	d.RunInfo.TotalItems = len(d.Items)
	return nil
}
