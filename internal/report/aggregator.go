package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/thyrook/boardsight/internal/board"
	"github.com/thyrook/boardsight/internal/logger"
)

// DefaultExtension is the image extension scanned when none is configured
const DefaultExtension = ".jpeg"

// ErrNoImages is returned when a run processed no image successfully
var ErrNoImages = errors.New("no data: no image was processed")

// FilePredictor predicts one labelled board image
type FilePredictor interface {
	PredictFile(path string) (*board.Diff, error)
	ModelPath() string
}

// Options controls a directory run
type Options struct {
	// Extension selects the files to predict, matched case-sensitively
	Extension string

	// FailFast aborts the run on the first file that cannot be predicted
	FailFast bool

	// Now stamps the report, defaults to time.Now
	Now func() time.Time

	// DryRun skips writing the report file
	DryRun bool
}

// Aggregator runs a predictor over directories and builds folder reports
type Aggregator struct {
	predictor FilePredictor
	opts      Options
	logger    *zap.Logger
}

// NewAggregator creates an aggregator, filling unset options with defaults
func NewAggregator(predictor FilePredictor, opts Options, l *zap.Logger) *Aggregator {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		predictor: predictor,
		opts:      opts,
		logger:    logger.OrNop(l),
	}
}

// PredictDir predicts every matching image directly inside dir, writes the
// report to dir and returns it. Files are processed in name order and
// reports left by earlier runs are ignored.
func (a *Aggregator) PredictDir(dir string) (r *FolderReport, err error) {
	done := logger.StartOperation(a.logger, "predict_dir", zap.String("folder", dir))
	defer func() { done(err) }()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	r = newFolderReport(uuid.New().String(), a.opts.Now(), a.predictor.ModelPath(), dir)

	var failures error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if IsReportName(name) {
			continue
		}
		if !strings.HasSuffix(name, a.opts.Extension) {
			r.SkippedFiles = append(r.SkippedFiles, name)
			continue
		}

		if err := a.predictFile(r, dir, name); err != nil {
			if a.opts.FailFast {
				return nil, fmt.Errorf("prediction failed for %s: %w", name, err)
			}
			r.FailedFiles[name] = err.Error()
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", name, err))
		}
	}

	if failures != nil {
		a.logger.Warn("Some files could not be predicted",
			zap.Int("failed", len(r.FailedFiles)),
			zap.Error(failures),
		)
	}

	if r.TotalFiles == 0 {
		if failures != nil {
			return nil, fmt.Errorf("%w in %s: %v", ErrNoImages, dir, failures)
		}
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}

	r.finalize()

	if a.opts.DryRun {
		return r, nil
	}

	path, err := r.Save(dir)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Saved report",
		zap.String("path", path),
		zap.String("run_id", r.RunID),
		zap.Int("files", r.TotalFiles),
		zap.Float64("file_error_ratio", r.FileErrorRatio),
		zap.Float64("field_error_ratio", r.FieldErrorRatio),
	)

	return r, nil
}

// predictFile leaves r untouched unless the prediction succeeds
func (a *Aggregator) predictFile(r *FolderReport, dir, name string) error {
	truth, err := board.ParseFEN(board.FenFromFilename(name))
	if err != nil {
		return fmt.Errorf("invalid ground truth in file name: %w", err)
	}

	result, err := a.predictor.PredictFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}

	r.addFile(name, truth, result.ErrorCount, result.ErrorPieces)
	return nil
}
