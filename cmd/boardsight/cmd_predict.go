package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thyrook/boardsight/internal/report"
	"github.com/thyrook/boardsight/internal/storage"
)

var (
	failFast  bool
	extension string
	dryRun    bool
	noHistory bool
)

var predictDirCmd = &cobra.Command{
	Use:   "predict-dir <directory>",
	Short: "Predict every labelled image in a directory and save a report",
	Long: `Runs the classifier over every image in the directory whose name ends in the
dataset extension and writes <timestamp>.json with file, square and piece level
error statistics next to the images.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredictDir,
}

var predictFileCmd = &cobra.Command{
	Use:   "predict-file <image>",
	Short: "Predict one labelled image and list the wrong squares",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredictFile,
}

func init() {
	predictDirCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort on the first file that cannot be predicted")
	predictDirCmd.Flags().StringVar(&extension, "ext", "", "Image extension to scan (default from config)")
	predictDirCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not write the report file")
	predictDirCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the report in the history store")
}

func runPredictDir(cmd *cobra.Command, args []string) error {
	dir := args[0]

	predictor, cnn, err := loadPredictor()
	if err != nil {
		return err
	}
	defer cnn.Close()

	opts := report.Options{
		Extension: cfg.Dataset.Extension,
		FailFast:  cfg.Dataset.FailFast || failFast,
		DryRun:    dryRun,
	}
	if extension != "" {
		opts.Extension = extension
	}

	r, err := report.NewAggregator(predictor, opts, appLogger).PredictDir(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, r.Summary())
	if !dryRun {
		fmt.Fprintf(out, "Saved output to: %s\n", filepath.Join(dir, report.FileName(r.Timestamp)))
	}

	if cfg.History.Enabled && !noHistory {
		if err := recordHistory(r); err != nil {
			// the report file is already written
			appLogger.Warn("Failed to record report history", zap.Error(err))
		}
	}

	return nil
}

func recordHistory(r *report.FolderReport) error {
	h, err := storage.NewHistory(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer h.Close()

	seq, err := h.Record(r)
	if err != nil {
		return err
	}
	appLogger.Debug("Report recorded", zap.Uint64("seq", seq), zap.String("run_id", r.RunID))
	return nil
}

func runPredictFile(cmd *cobra.Command, args []string) error {
	predictor, cnn, err := loadPredictor()
	if err != nil {
		return err
	}
	defer cnn.Close()

	result, err := predictor.PredictFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Truth:     %s\n", result.Truth)
	fmt.Fprintf(out, "Predicted: %s\n", result.Predicted)
	fmt.Fprintf(out, "Errors:    %d\n", result.ErrorCount)
	if result.ErrorCount > 0 {
		positions := make([]string, len(result.ErrorPositions))
		for i, pos := range result.ErrorPositions {
			positions[i] = fmt.Sprintf("%d:%s", pos, result.ErrorPieces[i])
		}
		fmt.Fprintf(out, "Wrong:     %s\n", strings.Join(positions, " "))
	}
	return nil
}
