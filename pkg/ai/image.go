package ai

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

// ImageOpts control how images are prepared before being sent to a vision model.
type ImageOpts struct {
	// MaxY is the maximum height in pixels; taller images are resized. 0 sends the original.
	MaxY    int
	Quality int
}

// DefaultImageOpts are used unless a backend is configured otherwise.
var DefaultImageOpts = ImageOpts{MaxY: 640, Quality: 85}

// Downscale returns a JPEG rendition of img that is at most o.MaxY pixels tall.
func Downscale(img image.Image, o ImageOpts) ([]byte, error) {
	if img.Bounds().Dy() == 0 || img.Bounds().Dx() == 0 {
		return nil, fmt.Errorf("empty image: %+v", img.Bounds())
	}

	x := img.Bounds().Dx()
	y := img.Bounds().Dy()
	if o.MaxY > 0 && y > o.MaxY {
		scale := float64(y) / float64(o.MaxY)
		x = int(float64(x) / scale)
		y = o.MaxY
		img = transform.Resize(img, x, y, transform.Lanczos)
	}

	var b bytes.Buffer
	if err := imgio.JPEGEncoder(o.Quality)(&b, img); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b.Bytes(), nil
}

// imageData returns the bytes and MIME type to send for path, preferring a downscaled JPEG.
func imageData(path string, o ImageOpts) ([]byte, string, error) {
	if o.MaxY > 0 {
		img, err := imgio.Open(path)
		if err == nil {
			bs, err := Downscale(img, o)
			if err == nil {
				return bs, "image/jpeg", nil
			}
			klog.Warningf("unable to downscale %s, sending original: %v", path, err)
		} else {
			klog.V(1).Infof("unable to decode %s, sending original: %v", path, err)
		}
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read: %w", err)
	}
	return bs, mimeType(path), nil
}

func mimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jpg" {
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
