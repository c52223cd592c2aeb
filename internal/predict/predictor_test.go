package predict

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/thyrook/boardsight/internal/board"
	"github.com/thyrook/boardsight/internal/vision"
)

const sampleFEN = "1B1K4-1p5N-7p-1qp5-n1P5-8-6k1-b7"

// fixedClassifier returns a preset board regardless of the pixels
type fixedClassifier struct {
	seq   board.Sequence
	err   error
	short bool
	calls int
}

func (f *fixedClassifier) Classify(squares [][]float32) ([]board.Piece, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.short {
		return f.seq[:10], nil
	}
	if len(squares) != board.NumSquares {
		return nil, errors.New("expected a full board")
	}
	return f.seq[:], nil
}

func writeBoardImage(t *testing.T, dir, name string, size int) string {
	t.Helper()

	img := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer img.Close()

	path := filepath.Join(dir, name)
	require.True(t, gocv.IMWrite(path, img))
	return path
}

func TestPredictFile(t *testing.T) {
	dir := t.TempDir()
	path := writeBoardImage(t, dir, sampleFEN+".jpeg", vision.BoardPixels)

	truth, err := board.ParseFEN(sampleFEN)
	require.NoError(t, err)
	predicted := truth
	predicted[3] = board.BlackKing

	clf := &fixedClassifier{seq: predicted}
	p := NewPredictor(clf, "model.gob", nil)
	assert.Equal(t, "model.gob", p.ModelPath())

	result, err := p.PredictFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, clf.calls)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, []int{3}, result.ErrorPositions)
	assert.Equal(t, []string{"Kk"}, result.ErrorPieces)
}

func TestPredictFileFailures(t *testing.T) {
	dir := t.TempDir()

	p := NewPredictor(&fixedClassifier{}, "", nil)

	// ranks do not add up to 64 squares
	bad := writeBoardImage(t, dir, "8-8.jpeg", vision.BoardPixels)
	_, err := p.PredictFile(bad)
	assert.ErrorIs(t, err, board.ErrSequenceLength)

	small := writeBoardImage(t, dir, "8-8-8-8-8-8-8-8.jpeg", 200)
	_, err = p.PredictFile(small)
	assert.ErrorIs(t, err, vision.ErrBoardShape)

	_, err = p.PredictFile(filepath.Join(dir, sampleFEN+".jpeg"))
	assert.ErrorIs(t, err, vision.ErrImageLoad)

	good := writeBoardImage(t, filepath.Join(dir), sampleFEN+".jpeg", vision.BoardPixels)
	boom := errors.New("model exploded")
	_, err = NewPredictor(&fixedClassifier{err: boom}, "", nil).PredictFile(good)
	assert.ErrorIs(t, err, boom)

	_, err = NewPredictor(&fixedClassifier{short: true}, "", nil).PredictFile(good)
	assert.Error(t, err)
}

func TestRecognizeFile(t *testing.T) {
	dir := t.TempDir()
	path := writeBoardImage(t, dir, "unknown.png", vision.BoardPixels)

	seq, err := board.ParseFEN(sampleFEN)
	require.NoError(t, err)

	rec, err := NewPredictor(&fixedClassifier{seq: seq}, "", nil).RecognizeFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleFEN, rec.FEN)
	assert.Equal(t, seq, rec.Sequence)
}
