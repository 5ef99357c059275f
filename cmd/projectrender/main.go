// Command projectrender renders the preview and projector frames of a pattern
// page to PNG files, for checking a configuration without a second display.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"pattern-projector/internal/config"
	"pattern-projector/internal/effects"
	"pattern-projector/internal/placement"
	"pattern-projector/internal/raster"
	"pattern-projector/internal/surface"
	"pattern-projector/pkg/geometry"
)

func main() {
	docPath := flag.String("doc", "", "Pattern image file or directory of page images")
	page := flag.Int("page", 1, "Page number (1-based)")
	configPath := flag.String("config", config.DefaultPath(), "Configuration file")
	out := flag.String("out", "frame", "Output file prefix")
	previewW := flag.Int("preview-width", 800, "Preview width in pixels")
	previewH := flag.Int("preview-height", 600, "Preview height in pixels")
	hue := flag.Float64("hue", 0, "Hue rotation (0-179)")
	sat := flag.Int("sat", 0, "Saturation slider (-100 to 100)")
	val := flag.Int("val", 0, "Value slider (-100 to 100)")
	grow := flag.Int("grow", 0, "Line thickness passes")
	invert := flag.Bool("invert", false, "Invert the projector")
	invertBoth := flag.Bool("invert-both", false, "Also invert the preview")
	mirror := flag.Bool("mirror", false, "Mirror horizontally")
	rotate := flag.Float64("rotate", 0, "Rotation in degrees")
	zoom := flag.Float64("zoom", 1, "Zoom relative to fit")
	flag.Parse()

	if *docPath == "" {
		fmt.Println("Usage: projectrender -doc <path> [-page 1] [-out frame] [-hue 0] [-sat 0] [-val 0] [-grow 0] [-invert] [-mirror] [-rotate 0] [-zoom 1]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	doc, err := raster.Open(*docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open document: %v\n", err)
		os.Exit(1)
	}

	dpiX, dpiY := cfg.RenderDPIs()
	src, err := doc.RenderPage(*page-1, dpiX, dpiY)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render page: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s, page %d of %d: %dx%d pixels at %.0fx%.0f DPI (%.1f x %.1f in)\n",
		doc.Path(), *page, doc.PageCount(), src.Width(), src.Height(), dpiX, dpiY, src.WidthInches(), src.HeightInches())

	span := cfg.DeviceScale().ToOutput(geometry.DocPoint{X: float64(src.Width()), Y: float64(src.Height())})
	fmt.Printf("Projected page spans %.0fx%.0f of %dx%d projector pixels\n",
		span.X, span.Y, cfg.ProjectorWidth, cfg.ProjectorHeight)

	params := effects.Params{
		HueOffset:       *hue,
		Saturation:      effects.SliderMultiplier(*sat),
		Value:           effects.SliderMultiplier(*val),
		InvertProjector: *invert,
		InvertPreview:   *invert && *invertBoth,
		LineGrowth:      *grow,
	}.Normalize()
	fmt.Printf("Effects: hue %.0f, saturation x%.2f, value x%.2f, grow %d\n",
		params.HueOffset, params.Saturation, params.Value, params.LineGrowth)

	overlay, err := effects.Apply(src.Image, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Color transform failed: %v\n", err)
		os.Exit(1)
	}

	frame := placement.Frame{
		Preview: geometry.NewSize(float64(*previewW), float64(*previewH)),
		Output:  cfg.OutputSize(),
		Device:  cfg.DeviceScale(),
	}
	t := frame.Fit(src.Size())
	t.Rotation = *rotate
	t.Scale = frame.Clamp(t.Scale * *zoom)
	t.Mirror = *mirror
	t = t.Normalize()
	fmt.Printf("Placement: pivot (%.0f, %.0f), rotation %.1f, scale %.3f (max %.3f)\n",
		t.Pivot.X, t.Pivot.Y, t.Rotation, t.Scale, frame.MaxScale())

	in := surface.Input{
		Source:    src,
		Overlay:   overlay,
		Transform: t,
		Frame:     frame,
		Effects:   params,
	}

	preview, err := surface.RenderPreview(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Preview failed: %v\n", err)
		os.Exit(1)
	}
	projector, err := surface.RenderProjector(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Projector failed: %v\n", err)
		os.Exit(1)
	}

	for name, img := range map[string]image.Image{"preview": preview, "projector": projector} {
		path := fmt.Sprintf("%s_%s.png", *out, name)
		if err := writePNG(path, img); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		b := img.Bounds()
		fmt.Printf("Wrote %s (%dx%d)\n", path, b.Dx(), b.Dy())
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
