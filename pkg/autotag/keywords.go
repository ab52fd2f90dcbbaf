package autotag

import (
	"fmt"

	"github.com/barasher/go-exiftool"
)

// MaxKeywords limits how many tags are embedded into an image.
var MaxKeywords = 5

// Exiftool writes tags into the IPTC Keywords field using exiftool.
type Exiftool struct {
	et *exiftool.Exiftool
}

// NewExiftool starts an exiftool process. Close must be called when done.
func NewExiftool() (*Exiftool, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &Exiftool{et: et}, nil
}

// WriteKeywords replaces the Keywords of the image at path with tags.
func (e *Exiftool) WriteKeywords(path string, tags []string) error {
	if len(tags) > MaxKeywords {
		tags = tags[0:MaxKeywords]
	}

	fms := e.et.ExtractMetadata(path)
	if fms[0].Err != nil {
		return fmt.Errorf("extract %q: %w", path, fms[0].Err)
	}

	fms[0].SetStrings("Keywords", tags)
	e.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("write %q: %w", path, fms[0].Err)
	}
	return nil
}

func (e *Exiftool) Close() error {
	return e.et.Close()
}
