package vision

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/thyrook/boardsight/internal/board"
)

var (
	lightSquare = color.RGBA{240, 217, 181, 255}
	darkSquare  = color.RGBA{181, 136, 99, 255}
	whitePiece  = color.RGBA{255, 255, 255, 255}
	blackPiece  = color.RGBA{50, 50, 50, 255}
	outline     = color.RGBA{0, 0, 0, 255}
)

// RenderBoard draws a synthetic 400x400 board for seq: a checkerboard with
// each piece as a filled disc labelled by its letter. The caller owns the Mat.
func RenderBoard(seq board.Sequence) gocv.Mat {
	img := gocv.NewMatWithSize(BoardPixels, BoardPixels, gocv.MatTypeCV8UC3)

	for i, p := range seq {
		rect, _ := SquareRect(i + 1)

		squareColor := lightSquare
		if (i/GridSize+i%GridSize)%2 == 1 {
			squareColor = darkSquare
		}
		gocv.Rectangle(&img, rect, squareColor, -1)

		if p == board.Empty {
			continue
		}

		fill, ink := whitePiece, outline
		if p.IsBlack() {
			fill, ink = blackPiece, whitePiece
		}

		center := image.Pt(rect.Min.X+SquarePixels/2, rect.Min.Y+SquarePixels/2)
		gocv.Circle(&img, center, SquarePixels/2-5, fill, -1)
		gocv.Circle(&img, center, SquarePixels/2-5, outline, 1)

		label := strings.ToUpper(string(p.Char()))
		gocv.PutText(&img, label, image.Pt(center.X-8, center.Y+8),
			gocv.FontHersheySimplex, 0.7, ink, 2)
	}

	return img
}

// WriteLabelledBoard renders seq and saves it in dir under its FEN name,
// the layout directory runs expect. Returns the written path.
func WriteLabelledBoard(dir string, seq board.Sequence, ext string) (string, error) {
	img := RenderBoard(seq)
	defer img.Close()

	path := filepath.Join(dir, seq.FEN()+ext)
	if ok := gocv.IMWrite(path, img); !ok {
		return "", fmt.Errorf("failed to save image to %s", path)
	}
	return path, nil
}
