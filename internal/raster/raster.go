// Package raster turns document pages into source rasters at a requested DPI.
package raster

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"

	srcimage "pattern-projector/internal/image"

	"golang.org/x/image/draw"
)

// ErrPageRange is returned for page indices outside the document.
var ErrPageRange = errors.New("page out of range")

// Rasterizer renders document pages.
type Rasterizer interface {
	PageCount() int
	RenderPage(page int, dpiX, dpiY float64) (*srcimage.Source, error)
}

// Files is a Rasterizer over raster image files. A single file is a one-page
// document; a directory contributes each supported image, in name order, as a page.
type Files struct {
	path  string
	pages []string
}

// Open prepares a Files rasterizer for a file or directory.
func Open(path string) (*Files, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	f := &Files{path: path}
	if !info.IsDir() {
		if !srcimage.IsSupportedFormat(path) {
			return nil, fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
		}
		f.pages = []string{path}
		return f, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list document pages: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && srcimage.IsSupportedFormat(e.Name()) {
			f.pages = append(f.pages, filepath.Join(path, e.Name()))
		}
	}
	if len(f.pages) == 0 {
		return nil, fmt.Errorf("no pages found in %s", path)
	}
	sort.Strings(f.pages)
	return f, nil
}

// Path returns the document path given to Open.
func (f *Files) Path() string {
	return f.path
}

// PageCount returns the number of pages.
func (f *Files) PageCount() int {
	return len(f.pages)
}

// PageName returns the base file name of a page.
func (f *Files) PageName(page int) string {
	if page < 0 || page >= len(f.pages) {
		return ""
	}
	return filepath.Base(f.pages[page])
}

// RenderPage decodes a page and resamples it from its native resolution to
// dpiX by dpiY. Non-positive DPI values keep the native resolution.
func (f *Files) RenderPage(page int, dpiX, dpiY float64) (*srcimage.Source, error) {
	if page < 0 || page >= len(f.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", page, len(f.pages), ErrPageRange)
	}

	src, err := srcimage.Load(f.pages[page])
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	src.Page = page

	if dpiX <= 0 || dpiY <= 0 {
		return src, nil
	}
	return Resample(src, dpiX, dpiY), nil
}

// Resample rescales src to the target resolution with a Catmull-Rom filter.
func Resample(src *srcimage.Source, dpiX, dpiY float64) *srcimage.Source {
	w := int(math.Round(float64(src.Width()) * dpiX / src.DPIX))
	h := int(math.Round(float64(src.Height()) * dpiY / src.DPIY))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == src.Width() && h == src.Height() {
		out := *src
		out.DPIX, out.DPIY = dpiX, dpiY
		return &out
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Rect, src.Image, src.Image.Rect, draw.Src, nil)

	return &srcimage.Source{
		Path:  src.Path,
		Page:  src.Page,
		Image: dst,
		DPIX:  dpiX,
		DPIY:  dpiY,
	}
}
