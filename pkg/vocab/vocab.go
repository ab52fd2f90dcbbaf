// Package vocab loads the controlled vocabulary that tags are chosen from.
package vocab

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"k8s.io/klog/v2"
)

// File is the on-disk format of a vocabulary.
type File struct {
	ValidTags []string `json:"valid_tags"`
}

// Vocabulary is an immutable, ordered set of allowed tags.
type Vocabulary struct {
	terms []string
	set   map[string]bool
}

// New returns a vocabulary of terms. Blank and repeated terms are ignored.
func New(terms ...string) *Vocabulary {
	v := &Vocabulary{set: map[string]bool{}}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || v.set[t] {
			continue
		}
		v.set[t] = true
		v.terms = append(v.terms, t)
	}
	return v
}

// Load reads the vocabulary at path. Any failure yields an empty vocabulary.
func Load(fs afero.Fs, path string) *Vocabulary {
	v, err := read(fs, path)
	if err != nil {
		klog.Errorf("unable to load valid tags from %s, tagging will yield no tags: %v", path, err)
		return New()
	}
	klog.Infof("loaded %d valid tags from %s", v.Len(), path)
	return v
}

func read(fs afero.Fs, path string) (*Vocabulary, error) {
	bs, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	f := File{}
	if err := json.Unmarshal(bs, &f); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return New(f.ValidTags...), nil
}

// Terms returns the allowed tags in file order.
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Contains reports whether tag is allowed.
func (v *Vocabulary) Contains(tag string) bool {
	return v.set[tag]
}

// Len returns the number of allowed tags.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Empty reports whether no tags are allowed; tagging is skipped when it is.
func (v *Vocabulary) Empty() bool {
	return len(v.terms) == 0
}

// Filter parses a comma-separated model response into allowed tags.
// Terms outside the vocabulary are dropped, as are repeats: the first occurrence wins.
func (v *Vocabulary) Filter(raw string) []string {
	tags := []string{}
	seen := map[string]bool{}

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	for _, f := range fields {
		t := strings.TrimSpace(f)
		if !v.Contains(t) || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
