package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tstromberg/tagflow/pkg/catalog"
)

func TestSummary(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	d := catalog.NewDocument("src", now)
	_ = d.Append(catalog.NewItem("vest_01.jpg", "x", []string{"vest", "white"}, now))
	_ = d.Append(catalog.NewItem("trousers.png", "y", nil, now))

	var b bytes.Buffer
	if err := Summary(&b, d, "data/image_metadata.json"); err != nil {
		t.Fatalf("Summary: %v", err)
	}

	out := b.String()
	for _, want := range []string{"Filename", "# Tags", "vest_01", "vest_01.jpg", "trousers.png", "data/image_metadata.json", "2 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary() output missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryEmpty(t *testing.T) {
	var b bytes.Buffer
	if err := Summary(&b, catalog.NewDocument("src", time.Now()), "meta.json"); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !strings.Contains(b.String(), "0 items") {
		t.Errorf("Summary() = %q, want item count", b.String())
	}
}
