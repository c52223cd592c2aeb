package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const (
	// BoardPixels is the edge length of a board image
	BoardPixels = 400

	// SquarePixels is the edge length of a single square
	SquarePixels = 50

	// Channels is the number of color channels expected in board images
	Channels = 3

	// GridSize is the number of squares along each edge
	GridSize = BoardPixels / SquarePixels

	// SquareTensorLen is the length of a normalized square tensor (HWC)
	SquareTensorLen = SquarePixels * SquarePixels * Channels
)

var (
	// ErrImageLoad is returned when an image file cannot be decoded
	ErrImageLoad = errors.New("failed to load image")

	// ErrBoardShape is returned for images that are not 400x400x3
	ErrBoardShape = errors.New("board image must be 400x400 with 3 channels")

	// ErrSquareIndex is returned for square indices outside 1-64
	ErrSquareIndex = errors.New("square index must be in 1-64")
)

// LoadBoard reads a board image from disk in BGR order and checks its shape.
// Channels are kept as stored, so grayscale and alpha images are rejected.
// The caller owns the returned Mat.
func LoadBoard(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrImageLoad, path)
	}

	if err := CheckBoard(img); err != nil {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%s: %w", path, err)
	}

	return img, nil
}

// CheckBoard verifies a Mat is a 400x400 three channel image
func CheckBoard(img gocv.Mat) error {
	if img.Empty() {
		return fmt.Errorf("%w: empty image", ErrBoardShape)
	}
	if img.Rows() != BoardPixels || img.Cols() != BoardPixels || img.Channels() != Channels {
		return fmt.Errorf("%w: got %dx%dx%d", ErrBoardShape, img.Rows(), img.Cols(), img.Channels())
	}
	return nil
}

// SquareRect returns the pixel region for a 1-based square index.
// Squares run row-major from the top-left corner.
func SquareRect(index int) (image.Rectangle, error) {
	if index < 1 || index > GridSize*GridSize {
		return image.Rectangle{}, fmt.Errorf("%w: got %d", ErrSquareIndex, index)
	}

	col := (index - 1) % GridSize
	row := (index - 1) / GridSize

	x := col * SquarePixels
	y := row * SquarePixels
	return image.Rect(x, y, x+SquarePixels, y+SquarePixels), nil
}

// ExtractSquare returns a view of one square of the board.
// The returned Mat shares pixels with img and must be closed by the caller.
func ExtractSquare(img gocv.Mat, index int) (gocv.Mat, error) {
	if err := CheckBoard(img); err != nil {
		return gocv.NewMat(), err
	}

	rect, err := SquareRect(index)
	if err != nil {
		return gocv.NewMat(), err
	}

	return img.Region(rect), nil
}

// SquareTensor converts a BGR square to RGB floats in [0,1], laid out height x width x channel
func SquareTensor(square gocv.Mat) ([]float32, error) {
	if square.Empty() {
		return nil, errors.New("empty square")
	}
	if square.Rows() != SquarePixels || square.Cols() != SquarePixels || square.Channels() != Channels {
		return nil, fmt.Errorf("invalid square shape: %dx%dx%d", square.Rows(), square.Cols(), square.Channels())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(square, &rgb, gocv.ColorBGRToRGB)

	normalized := gocv.NewMat()
	defer normalized.Close()
	rgb.ConvertTo(&normalized, gocv.MatTypeCV32FC3)
	normalized.DivideFloat(255.0)

	data, err := normalized.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read square data: %w", err)
	}
	if len(data) != SquareTensorLen {
		return nil, fmt.Errorf("unexpected square tensor length %d", len(data))
	}

	// data aliases the Mat buffer, which is released on return
	out := make([]float32, SquareTensorLen)
	copy(out, data)
	return out, nil
}

// SliceBoard extracts all 64 squares in index order and normalizes them
func SliceBoard(img gocv.Mat) ([][]float32, error) {
	if err := CheckBoard(img); err != nil {
		return nil, err
	}

	squares := make([][]float32, 0, GridSize*GridSize)
	for index := 1; index <= GridSize*GridSize; index++ {
		sq, err := ExtractSquare(img, index)
		if err != nil {
			return nil, err
		}
		tensor, err := SquareTensor(sq)
		sq.Close()
		if err != nil {
			return nil, fmt.Errorf("square %d: %w", index, err)
		}
		squares = append(squares, tensor)
	}

	return squares, nil
}
