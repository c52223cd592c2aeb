package model

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/thyrook/boardsight/internal/board"
	"github.com/thyrook/boardsight/internal/vision"
)

const (
	// ModelType identifies SquareCNN checkpoints
	ModelType = "SquareCNN"

	// CheckpointVersion is written into every checkpoint
	CheckpointVersion = "1.0"

	// DefaultBatchSize classifies a whole board in one pass
	DefaultBatchSize = board.NumSquares

	// NumClasses is one class per square content, empty included
	NumClasses = board.NumPieces

	poolOut  = vision.SquarePixels / 2 / 2 // 50 -> 25 -> 12
	flatSize = 32 * poolOut * poolOut
)

// SquareCNN classifies 50x50 RGB square images into piece classes.
// The class index equals the board.Piece ordinal.
type SquareCNN struct {
	// Graph
	g *gorgonia.ExprGraph

	// Input: [batch, 3, 50, 50]
	input *gorgonia.Node

	// Convolutional layers
	conv1W *gorgonia.Node // [16, 3, 3, 3]
	conv1B *gorgonia.Node // [16]
	conv2W *gorgonia.Node // [32, 16, 3, 3]
	conv2B *gorgonia.Node // [32]

	// Dense layers
	fc1W *gorgonia.Node // [flatSize, 128]
	fc1B *gorgonia.Node // [128]
	fc2W *gorgonia.Node // [128, NumClasses]
	fc2B *gorgonia.Node // [NumClasses]

	output *gorgonia.Node

	vm        gorgonia.VM
	batchSize int
}

// Prediction is the most likely class for one square
type Prediction struct {
	Piece      board.Piece
	Confidence float64
}

// NewSquareCNN builds a randomly initialized model that runs batchSize squares per pass
func NewSquareCNN(batchSize int) (*SquareCNN, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("invalid batch size: %d", batchSize)
	}

	g := gorgonia.NewGraph()

	input := gorgonia.NewTensor(g, tensor.Float64, 4,
		gorgonia.WithShape(batchSize, vision.Channels, vision.SquarePixels, vision.SquarePixels),
		gorgonia.WithName("input"))

	// Conv1: 3 -> 16 channels, 3x3 kernel
	conv1W := gorgonia.NewTensor(g, tensor.Float64, 4,
		gorgonia.WithShape(16, vision.Channels, 3, 3),
		gorgonia.WithName("conv1_w"),
		gorgonia.WithInit(gorgonia.GlorotU(1.0)))
	conv1B := gorgonia.NewTensor(g, tensor.Float64, 1,
		gorgonia.WithShape(16),
		gorgonia.WithName("conv1_b"),
		gorgonia.WithInit(gorgonia.Zeroes()))

	// Conv2: 16 -> 32 channels, 3x3 kernel
	conv2W := gorgonia.NewTensor(g, tensor.Float64, 4,
		gorgonia.WithShape(32, 16, 3, 3),
		gorgonia.WithName("conv2_w"),
		gorgonia.WithInit(gorgonia.GlorotU(1.0)))
	conv2B := gorgonia.NewTensor(g, tensor.Float64, 1,
		gorgonia.WithShape(32),
		gorgonia.WithName("conv2_b"),
		gorgonia.WithInit(gorgonia.Zeroes()))

	// Conv1 + ReLU + MaxPool: [b, 3, 50, 50] -> [b, 16, 25, 25]
	conv1, err := gorgonia.Conv2d(input, conv1W, tensor.Shape{3, 3}, []int{1, 1}, []int{1, 1}, []int{1, 1})
	if err != nil {
		return nil, fmt.Errorf("conv1 failed: %w", err)
	}
	conv1 = gorgonia.Must(gorgonia.BroadcastAdd(conv1, conv1B, nil, []byte{0, 2, 3}))
	conv1 = gorgonia.Must(gorgonia.Rectify(conv1))
	pool1, err := gorgonia.MaxPool2D(conv1, tensor.Shape{2, 2}, []int{0, 0}, []int{2, 2})
	if err != nil {
		return nil, fmt.Errorf("pool1 failed: %w", err)
	}

	// Conv2 + ReLU + MaxPool: [b, 16, 25, 25] -> [b, 32, 12, 12]
	conv2, err := gorgonia.Conv2d(pool1, conv2W, tensor.Shape{3, 3}, []int{1, 1}, []int{1, 1}, []int{1, 1})
	if err != nil {
		return nil, fmt.Errorf("conv2 failed: %w", err)
	}
	conv2 = gorgonia.Must(gorgonia.BroadcastAdd(conv2, conv2B, nil, []byte{0, 2, 3}))
	conv2 = gorgonia.Must(gorgonia.Rectify(conv2))
	pool2, err := gorgonia.MaxPool2D(conv2, tensor.Shape{2, 2}, []int{0, 0}, []int{2, 2})
	if err != nil {
		return nil, fmt.Errorf("pool2 failed: %w", err)
	}

	flat := gorgonia.Must(gorgonia.Reshape(pool2, tensor.Shape{batchSize, flatSize}))

	// FC1: flatSize -> 128
	fc1W := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(flatSize, 128),
		gorgonia.WithName("fc1_w"),
		gorgonia.WithInit(gorgonia.GlorotU(1.0)))
	fc1B := gorgonia.NewVector(g, tensor.Float64,
		gorgonia.WithShape(128),
		gorgonia.WithName("fc1_b"),
		gorgonia.WithInit(gorgonia.Zeroes()))

	fc1 := gorgonia.Must(gorgonia.Mul(flat, fc1W))
	fc1 = gorgonia.Must(gorgonia.BroadcastAdd(fc1, fc1B, nil, []byte{0}))
	fc1 = gorgonia.Must(gorgonia.Rectify(fc1))

	// FC2: 128 -> NumClasses
	fc2W := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(128, NumClasses),
		gorgonia.WithName("fc2_w"),
		gorgonia.WithInit(gorgonia.GlorotU(1.0)))
	fc2B := gorgonia.NewVector(g, tensor.Float64,
		gorgonia.WithShape(NumClasses),
		gorgonia.WithName("fc2_b"),
		gorgonia.WithInit(gorgonia.Zeroes()))

	logits := gorgonia.Must(gorgonia.Mul(fc1, fc2W))
	logits = gorgonia.Must(gorgonia.BroadcastAdd(logits, fc2B, nil, []byte{0}))

	output := gorgonia.Must(gorgonia.SoftMax(logits))

	return &SquareCNN{
		g:         g,
		input:     input,
		conv1W:    conv1W,
		conv1B:    conv1B,
		conv2W:    conv2W,
		conv2B:    conv2B,
		fc1W:      fc1W,
		fc1B:      fc1B,
		fc2W:      fc2W,
		fc2B:      fc2B,
		output:    output,
		vm:        gorgonia.NewTapeMachine(g),
		batchSize: batchSize,
	}, nil
}

// LoadSquareCNN builds a model and loads weights from a checkpoint.
// The checkpoint does not fix the batch size, so any value works.
func LoadSquareCNN(checkpointPath string, batchSize int) (*SquareCNN, error) {
	m, err := NewSquareCNN(batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	if err := m.Load(checkpointPath); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return m, nil
}

// BatchSize returns the number of squares processed per forward pass
func (m *SquareCNN) BatchSize() int {
	return m.batchSize
}

// Classify returns the most likely piece for each square tensor
func (m *SquareCNN) Classify(squares [][]float32) ([]board.Piece, error) {
	preds, err := m.Predict(squares)
	if err != nil {
		return nil, err
	}

	pieces := make([]board.Piece, len(preds))
	for i, p := range preds {
		pieces[i] = p.Piece
	}
	return pieces, nil
}

// Predict runs the squares through the network in chunks of BatchSize.
// Each square is a 50x50x3 HWC tensor with values in [0,1].
func (m *SquareCNN) Predict(squares [][]float32) ([]Prediction, error) {
	for i, sq := range squares {
		if len(sq) != vision.SquareTensorLen {
			return nil, fmt.Errorf("square %d: invalid tensor length %d, expected %d",
				i, len(sq), vision.SquareTensorLen)
		}
	}

	preds := make([]Prediction, 0, len(squares))
	for start := 0; start < len(squares); start += m.batchSize {
		end := start + m.batchSize
		if end > len(squares) {
			end = len(squares)
		}

		chunk, err := m.forward(squares[start:end])
		if err != nil {
			return nil, err
		}
		preds = append(preds, chunk...)
	}

	return preds, nil
}

// forward runs one batch; a short batch is zero padded and the padding discarded
func (m *SquareCNN) forward(squares [][]float32) ([]Prediction, error) {
	inputData := make([]float64, m.batchSize*vision.SquareTensorLen)
	for i, sq := range squares {
		toCHW(sq, inputData[i*vision.SquareTensorLen:(i+1)*vision.SquareTensorLen])
	}

	inputTensor := tensor.New(
		tensor.WithShape(m.batchSize, vision.Channels, vision.SquarePixels, vision.SquarePixels),
		tensor.WithBacking(inputData),
	)

	if err := gorgonia.Let(m.input, inputTensor); err != nil {
		return nil, fmt.Errorf("failed to set input: %w", err)
	}

	// Reset VM for next run
	defer m.vm.Reset()

	if err := m.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	outputValue := m.output.Value()
	if outputValue == nil {
		return nil, fmt.Errorf("output is nil")
	}
	probs := outputValue.Data().([]float64)

	preds := make([]Prediction, len(squares))
	for i := range squares {
		row := probs[i*NumClasses : (i+1)*NumClasses]
		best := floats.MaxIdx(row)
		piece, err := ClassToPiece(best)
		if err != nil {
			return nil, err
		}
		preds[i] = Prediction{Piece: piece, Confidence: row[best]}
	}

	return preds, nil
}

// toCHW converts a height x width x channel tensor into channel x height x width
func toCHW(hwc []float32, dst []float64) {
	plane := vision.SquarePixels * vision.SquarePixels
	for p := 0; p < plane; p++ {
		for c := 0; c < vision.Channels; c++ {
			dst[c*plane+p] = float64(hwc[p*vision.Channels+c])
		}
	}
}

// ClassToPiece maps a network class index to a piece
func ClassToPiece(class int) (board.Piece, error) {
	p := board.Piece(class)
	if !p.Valid() {
		return board.Empty, fmt.Errorf("invalid class index: %d", class)
	}
	return p, nil
}

// Learnables returns all trainable parameters
func (m *SquareCNN) Learnables() gorgonia.Nodes {
	return gorgonia.Nodes{
		m.conv1W, m.conv1B,
		m.conv2W, m.conv2B,
		m.fc1W, m.fc1B,
		m.fc2W, m.fc2B,
	}
}

// ModelMetadata stores model information
type ModelMetadata struct {
	Version    string
	ModelType  string
	InputShape []int
	NumClasses int
}

// Save writes model weights to a gob checkpoint
func (m *SquareCNN) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := gob.NewEncoder(f)

	metadata := ModelMetadata{
		Version:    CheckpointVersion,
		ModelType:  ModelType,
		InputShape: []int{vision.Channels, vision.SquarePixels, vision.SquarePixels},
		NumClasses: NumClasses,
	}
	if err := encoder.Encode(metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i, w := range m.Learnables() {
		val := w.Value()
		if val == nil {
			return fmt.Errorf("weight %d has nil value", i)
		}

		data := val.Data().([]float64)
		shape := val.Shape()

		if err := encoder.Encode(shape); err != nil {
			return fmt.Errorf("failed to encode weight %d shape: %w", i, err)
		}
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode weight %d data: %w", i, err)
		}
	}

	return nil
}

// Load reads model weights from a gob checkpoint
func (m *SquareCNN) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	decoder := gob.NewDecoder(f)

	var metadata ModelMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.ModelType != ModelType {
		return fmt.Errorf("invalid model type: %s", metadata.ModelType)
	}
	if metadata.NumClasses != NumClasses {
		return fmt.Errorf("checkpoint has %d classes, expected %d", metadata.NumClasses, NumClasses)
	}

	for i, w := range m.Learnables() {
		var shape tensor.Shape
		var data []float64

		if err := decoder.Decode(&shape); err != nil {
			return fmt.Errorf("failed to decode weight %d shape: %w", i, err)
		}
		if err := decoder.Decode(&data); err != nil {
			return fmt.Errorf("failed to decode weight %d data: %w", i, err)
		}
		if !shape.Eq(w.Shape()) {
			return fmt.Errorf("weight %d shape %v does not match %v", i, shape, w.Shape())
		}

		t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
		if err := gorgonia.Let(w, t); err != nil {
			return fmt.Errorf("failed to set weight %d: %w", i, err)
		}
	}

	return nil
}

// Close cleans up resources
func (m *SquareCNN) Close() error {
	if m.vm != nil {
		m.vm.Close()
	}
	return nil
}

// ModelExists checks if a model file exists
func ModelExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
