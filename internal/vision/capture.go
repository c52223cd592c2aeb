package vision

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"gocv.io/x/gocv"
)

// CaptureBoard grabs the configured screen region and returns it as a
// 400x400 BGR board image. An empty region captures the whole display.
// The caller owns the returned Mat.
func CaptureBoard(cfg *Config) (gocv.Mat, error) {
	if err := cfg.Validate(); err != nil {
		return gocv.NewMat(), fmt.Errorf("invalid capture config: %w", err)
	}

	bounds := cfg.CaptureRegion.ToRectangle()
	if cfg.CaptureRegion.IsZero() {
		if cfg.Display >= screenshot.NumActiveDisplays() {
			return gocv.NewMat(), fmt.Errorf("display %d not available", cfg.Display)
		}
		bounds = screenshot.GetDisplayBounds(cfg.Display)
	}

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to capture screen: %w", err)
	}

	frame := ImageToMat(img)
	defer frame.Close()

	return ResizeBoard(frame)
}

// ResizeBoard scales an arbitrary BGR image to the 400x400 board size
func ResizeBoard(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: empty image", ErrBoardShape)
	}
	if src.Channels() != Channels {
		return gocv.NewMat(), fmt.Errorf("%w: got %d channels", ErrBoardShape, src.Channels())
	}

	resized := gocv.NewMat()
	gocv.Resize(src, &resized, image.Pt(BoardPixels, BoardPixels), 0, 0, gocv.InterpolationLinear)
	return resized, nil
}

// ImageToMat converts an image.Image to a three channel BGR Mat
func ImageToMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// uint32 (0-65535) down to uint8
			mat.SetUCharAt3(y, x, 0, uint8(b>>8))
			mat.SetUCharAt3(y, x, 1, uint8(g>>8))
			mat.SetUCharAt3(y, x, 2, uint8(r>>8))
		}
	}

	return mat
}
