package autotag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// Extensions are the image types considered for tagging, matched case-insensitively.
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Accepted reports whether path names an image that should be tagged.
func Accepted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Candidates lists the images directly inside dir, sorted by name.
func Candidates(dir string) ([]string, error) {
	des, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	found := []string{}
	for _, de := range des {
		path := filepath.Join(dir, de.Name())
		if !Accepted(path) {
			klog.V(2).Infof("ignoring %s", path)
			continue
		}

		if de.IsSymlink() {
			st, err := os.Stat(path)
			if err != nil || !st.Mode().IsRegular() {
				klog.V(1).Infof("ignoring %s: not a regular file", path)
				continue
			}
		} else if !de.IsRegular() {
			continue
		}

		found = append(found, path)
	}

	sort.Strings(found)
	return found, nil
}

// Remaining returns the candidates whose filename is not in processed, keeping their order.
func Remaining(candidates []string, processed map[string]bool) []string {
	out := []string{}
	for _, c := range candidates {
		if !processed[filepath.Base(c)] {
			out = append(out, c)
		}
	}
	return out
}
