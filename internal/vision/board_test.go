package vision

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// newTestBoard builds a board where channel 0 holds the 0-based square number
// and channel 2 holds a constant, so every square is identifiable.
func newTestBoard(t *testing.T) gocv.Mat {
	t.Helper()

	img := gocv.NewMatWithSize(BoardPixels, BoardPixels, gocv.MatTypeCV8UC3)
	for y := 0; y < BoardPixels; y++ {
		for x := 0; x < BoardPixels; x++ {
			square := (y/SquarePixels)*GridSize + x/SquarePixels
			img.SetUCharAt3(y, x, 0, uint8(square))
			img.SetUCharAt3(y, x, 1, 0)
			img.SetUCharAt3(y, x, 2, 255)
		}
	}
	return img
}

func TestSquareRect(t *testing.T) {
	tests := []struct {
		index      int
		minX, minY int
		maxX, maxY int
	}{
		{1, 0, 0, 50, 50},
		{8, 350, 0, 400, 50},
		{9, 0, 50, 50, 100},
		{64, 350, 350, 400, 400},
	}

	for _, tt := range tests {
		rect, err := SquareRect(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.minX, rect.Min.X, "index %d", tt.index)
		assert.Equal(t, tt.minY, rect.Min.Y, "index %d", tt.index)
		assert.Equal(t, tt.maxX, rect.Max.X, "index %d", tt.index)
		assert.Equal(t, tt.maxY, rect.Max.Y, "index %d", tt.index)
	}

	for _, index := range []int{0, -1, 65} {
		_, err := SquareRect(index)
		assert.ErrorIs(t, err, ErrSquareIndex)
	}
}

func TestExtractSquare(t *testing.T) {
	img := newTestBoard(t)
	defer img.Close()

	tests := []struct {
		index  int
		square uint8
	}{
		{1, 0},
		{9, 8},
		{64, 63},
	}

	for _, tt := range tests {
		sq, err := ExtractSquare(img, tt.index)
		require.NoError(t, err)

		assert.Equal(t, SquarePixels, sq.Rows())
		assert.Equal(t, SquarePixels, sq.Cols())
		assert.Equal(t, Channels, sq.Channels())
		assert.Equal(t, tt.square, sq.GetUCharAt3(0, 0, 0))
		assert.Equal(t, tt.square, sq.GetUCharAt3(SquarePixels-1, SquarePixels-1, 0))
		sq.Close()
	}

	_, err := ExtractSquare(img, 65)
	assert.ErrorIs(t, err, ErrSquareIndex)
}

func TestExtractSquareRejectsWrongShape(t *testing.T) {
	small := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer small.Close()

	_, err := ExtractSquare(small, 1)
	assert.ErrorIs(t, err, ErrBoardShape)

	gray := gocv.NewMatWithSize(BoardPixels, BoardPixels, gocv.MatTypeCV8U)
	defer gray.Close()

	_, err = ExtractSquare(gray, 1)
	assert.ErrorIs(t, err, ErrBoardShape)
}

func TestSquareTensor(t *testing.T) {
	img := newTestBoard(t)
	defer img.Close()

	sq, err := ExtractSquare(img, 9)
	require.NoError(t, err)
	defer sq.Close()

	tensor, err := SquareTensor(sq)
	require.NoError(t, err)
	require.Len(t, tensor, SquareTensorLen)

	// BGR input comes out as RGB: red was stored in channel 2
	assert.InDelta(t, 1.0, tensor[0], 1e-6)
	assert.InDelta(t, 0.0, tensor[1], 1e-6)
	assert.InDelta(t, 8.0/255.0, tensor[2], 1e-6)

	for _, v := range tensor {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestSliceBoard(t *testing.T) {
	img := newTestBoard(t)
	defer img.Close()

	squares, err := SliceBoard(img)
	require.NoError(t, err)
	require.Len(t, squares, 64)

	for i, sq := range squares {
		require.Len(t, sq, SquareTensorLen)
		assert.InDelta(t, float32(i)/255.0, sq[2], 1e-6, "square %d", i)
	}
}

func TestLoadBoard(t *testing.T) {
	dir := t.TempDir()

	img := newTestBoard(t)
	defer img.Close()

	path := filepath.Join(dir, "board.png")
	require.True(t, gocv.IMWrite(path, img))

	loaded, err := LoadBoard(path)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, BoardPixels, loaded.Rows())
	assert.Equal(t, uint8(63), loaded.GetUCharAt3(399, 399, 0))

	small := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer small.Close()
	smallPath := filepath.Join(dir, "small.png")
	require.True(t, gocv.IMWrite(smallPath, small))

	_, err = LoadBoard(smallPath)
	assert.ErrorIs(t, err, ErrBoardShape)

	_, err = LoadBoard(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, ErrImageLoad)
}

func TestLoadBoardRejectsChannelCount(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		matType gocv.MatType
	}{
		{"gray.jpeg", gocv.MatTypeCV8U},
		{"gray.png", gocv.MatTypeCV8U},
		{"alpha.png", gocv.MatTypeCV8UC4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := gocv.NewMatWithSize(BoardPixels, BoardPixels, tt.matType)
			defer img.Close()

			path := filepath.Join(dir, tt.name)
			require.True(t, gocv.IMWrite(path, img))

			_, err := LoadBoard(path)
			assert.ErrorIs(t, err, ErrBoardShape)
		})
	}
}
