package image

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestToRGBANormalizesOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 9, 8))
	img.Set(5, 5, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	got := ToRGBA(img)
	if got.Rect != image.Rect(0, 0, 4, 3) {
		t.Fatalf("Rect = %v", got.Rect)
	}
	if c := got.RGBAAt(0, 0); c != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("pixel = %v", c)
	}

	same := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if ToRGBA(same) != same {
		t.Error("zero-origin RGBA should not be copied")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	c := Clone(img)
	c.Pix[0] = 99
	if img.Pix[0] != 0 {
		t.Error("Clone shares pixels with the original")
	}
}

func TestLoadPNGUsesDefaultDPI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	img := image.NewGray(image.Rect(0, 0, 7, 3))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Width() != 7 || src.Height() != 3 {
		t.Errorf("size = %dx%d", src.Width(), src.Height())
	}
	if src.DPIX != DefaultDPI || src.DPIY != DefaultDPI {
		t.Errorf("DPI = %v,%v", src.DPIX, src.DPIY)
	}
	if src.Path != path {
		t.Errorf("Path = %q", src.Path)
	}
}

func TestExtractTIFFDPI(t *testing.T) {
	// Minimal little-endian TIFF header with an IFD holding only resolution tags.
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(8))

	binary.Write(&buf, le, uint16(3))
	entry := func(tag, typ uint16, count, value uint32) {
		binary.Write(&buf, le, tag)
		binary.Write(&buf, le, typ)
		binary.Write(&buf, le, count)
		binary.Write(&buf, le, value)
	}
	ratOffset := uint32(8 + 2 + 3*12 + 4)
	entry(282, 5, 1, ratOffset)
	entry(283, 5, 1, ratOffset+8)
	entry(296, 3, 1, 2)
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, [2]uint32{300, 1})
	binary.Write(&buf, le, [2]uint32{600, 2})

	path := filepath.Join(t.TempDir(), "page.tif")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	x, y, err := extractTIFFDPI(path)
	if err != nil {
		t.Fatalf("extractTIFFDPI: %v", err)
	}
	if x != 300 || y != 300 {
		t.Errorf("dpi = %v,%v; want 300,300", x, y)
	}
}

func TestIsSupportedFormat(t *testing.T) {
	for path, want := range map[string]bool{
		"a.PNG": true, "b.tif": true, "c.jpeg": true, "d.pdf": false, "e": false,
	} {
		if got := IsSupportedFormat(path); got != want {
			t.Errorf("IsSupportedFormat(%q) = %v", path, got)
		}
	}
}
