package image

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ToBGR converts img into a new 3-channel BGR matrix. The caller must Close it.
func ToBGR(img *image.RGBA) (gocv.Mat, error) {
	img = ToRGBA(img)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: empty %dx%d", w, h)
	}

	rgba, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap image: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// FromBGR copies a 3-channel BGR matrix into a new opaque RGBA image.
func FromBGR(m gocv.Mat) *image.RGBA {
	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(m, &rgba, gocv.ColorBGRToRGBA)

	out := image.NewRGBA(image.Rect(0, 0, m.Cols(), m.Rows()))
	copy(out.Pix, rgba.ToBytes())
	return out
}
