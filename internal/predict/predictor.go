package predict

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/thyrook/boardsight/internal/board"
	"github.com/thyrook/boardsight/internal/logger"
	"github.com/thyrook/boardsight/internal/vision"
)

// Classifier assigns a piece to each normalized 50x50x3 square tensor
type Classifier interface {
	Classify(squares [][]float32) ([]board.Piece, error)
}

// FileResult is the comparison of one labelled image against its prediction
type FileResult = board.Diff

// Recognition is a predicted board without ground truth
type Recognition struct {
	Sequence board.Sequence
	FEN      string
}

// Predictor holds a loaded classifier and runs it on board images.
// It is immutable after construction and can be reused across calls.
type Predictor struct {
	classifier Classifier
	modelPath  string
	logger     *zap.Logger
}

// NewPredictor creates a predictor around a loaded classifier
func NewPredictor(classifier Classifier, modelPath string, l *zap.Logger) *Predictor {
	return &Predictor{
		classifier: classifier,
		modelPath:  modelPath,
		logger:     logger.OrNop(l),
	}
}

// ModelPath returns the checkpoint the classifier was loaded from
func (p *Predictor) ModelPath() string {
	return p.modelPath
}

// PredictFile classifies every square of the image at path and compares the
// result against the board encoded in the file name.
func (p *Predictor) PredictFile(path string) (*FileResult, error) {
	startTime := time.Now()

	truth, err := board.ParseFEN(board.FenFromFilename(path))
	if err != nil {
		return nil, fmt.Errorf("invalid ground truth in file name: %w", err)
	}

	img, err := vision.LoadBoard(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	predicted, err := p.classifyBoard(img)
	if err != nil {
		return nil, err
	}

	result := board.Compare(truth, predicted)

	p.logger.Debug("File predicted",
		zap.String("file", path),
		zap.Int("errors", result.ErrorCount),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return result, nil
}

// Recognize predicts the board shown in img
func (p *Predictor) Recognize(img gocv.Mat) (*Recognition, error) {
	seq, err := p.classifyBoard(img)
	if err != nil {
		return nil, err
	}
	return &Recognition{Sequence: seq, FEN: seq.FEN()}, nil
}

// RecognizeFile loads an image and predicts its board
func (p *Predictor) RecognizeFile(path string) (*Recognition, error) {
	img, err := vision.LoadBoard(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	return p.Recognize(img)
}

func (p *Predictor) classifyBoard(img gocv.Mat) (board.Sequence, error) {
	var seq board.Sequence

	squares, err := vision.SliceBoard(img)
	if err != nil {
		return seq, fmt.Errorf("failed to slice board: %w", err)
	}

	pieces, err := p.classifier.Classify(squares)
	if err != nil {
		return seq, fmt.Errorf("classification failed: %w", err)
	}
	if len(pieces) != board.NumSquares {
		return seq, fmt.Errorf("classifier returned %d labels, expected %d", len(pieces), board.NumSquares)
	}

	copy(seq[:], pieces)
	return seq, nil
}
