// Package image provides the source raster shared by the rendering pipeline,
// image file loading, and conversion to and from OpenCV matrices.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"pattern-projector/pkg/geometry"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// DefaultDPI is assumed for files that carry no resolution metadata.
const DefaultDPI = 72.0

// Source is a rasterized page. Its pixels are never modified after creation;
// a page change replaces the whole Source.
type Source struct {
	Path  string      // File the page was read from
	Page  int         // Zero-based page index
	Image *image.RGBA // Pixels, origin at (0,0)
	DPIX  float64     // Render resolution, pixels per inch
	DPIY  float64
}

// NewSource wraps img as a Source, copying it into a zero-origin RGBA buffer
// when it is not one already.
func NewSource(img image.Image, dpiX, dpiY float64) *Source {
	return &Source{Image: ToRGBA(img), DPIX: dpiX, DPIY: dpiY}
}

// Width returns the image width in pixels.
func (s *Source) Width() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Rect.Dx()
}

// Height returns the image height in pixels.
func (s *Source) Height() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Rect.Dy()
}

// Size returns the image dimensions.
func (s *Source) Size() geometry.Size {
	return geometry.NewSize(float64(s.Width()), float64(s.Height()))
}

// Empty reports whether the source has no pixels.
func (s *Source) Empty() bool {
	return s.Width() == 0 || s.Height() == 0
}

// WidthInches returns the physical page width if DPI is known.
func (s *Source) WidthInches() float64 {
	if s.DPIX == 0 {
		return 0
	}
	return float64(s.Width()) / s.DPIX
}

// HeightInches returns the physical page height if DPI is known.
func (s *Source) HeightInches() float64 {
	if s.DPIY == 0 {
		return 0
	}
	return float64(s.Height()) / s.DPIY
}

// ToRGBA returns img as a zero-origin *image.RGBA, copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	out := &image.RGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

// Load decodes an image file. TIFF resolution tags are honoured; other
// formats are reported at DefaultDPI.
func Load(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	src := NewSource(img, DefaultDPI, DefaultDPI)
	src.Path = path

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if x, y, err := extractTIFFDPI(path); err == nil {
			src.DPIX, src.DPIY = x, y
		}
	}

	return src, nil
}

// extractTIFFDPI reads the X and Y resolution tags of the first IFD.
func extractTIFFDPI(path string) (float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	header := make([]byte, 8)
	if _, err := file.Read(header); err != nil {
		return 0, 0, err
	}

	var byteOrder binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		byteOrder = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		byteOrder = binary.BigEndian
	default:
		return 0, 0, errors.New("not a valid TIFF file")
	}

	if _, err := file.Seek(int64(byteOrder.Uint32(header[4:8])), 0); err != nil {
		return 0, 0, err
	}

	var numEntries uint16
	if err := binary.Read(file, byteOrder, &numEntries); err != nil {
		return 0, 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // inches

	entries := make([]byte, 12*int(numEntries))
	if _, err := file.Read(entries); err != nil {
		return 0, 0, err
	}
	for i := 0; i < int(numEntries); i++ {
		entry := entries[i*12 : i*12+12]
		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		value := byteOrder.Uint32(entry[8:12])

		switch {
		case tag == 282 && fieldType == 5: // XResolution, RATIONAL
			xRes = readTIFFRational(file, int64(value), byteOrder)
		case tag == 283 && fieldType == 5: // YResolution
			yRes = readTIFFRational(file, int64(value), byteOrder)
		case tag == 296 && fieldType == 3: // ResolutionUnit, SHORT
			if byteOrder == binary.BigEndian {
				resUnit = uint16(value >> 16)
			} else {
				resUnit = uint16(value)
			}
		}
	}

	if xRes == 0 && yRes == 0 {
		return 0, 0, errors.New("no resolution tags found")
	}
	if xRes == 0 {
		xRes = yRes
	}
	if yRes == 0 {
		yRes = xRes
	}
	if resUnit == 3 { // centimeters
		xRes *= 2.54
		yRes *= 2.54
	}
	return xRes, yRes, nil
}

func readTIFFRational(file *os.File, offset int64, byteOrder binary.ByteOrder) float64 {
	buf := make([]byte, 8)
	if _, err := file.ReadAt(buf, offset); err != nil {
		return 0
	}
	num := byteOrder.Uint32(buf[0:4])
	denom := byteOrder.Uint32(buf[4:8])
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
