package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thyrook/boardsight/internal/config"
	"github.com/thyrook/boardsight/internal/logger"
	"github.com/thyrook/boardsight/internal/model"
	"github.com/thyrook/boardsight/internal/predict"
)

const version = "1.0.0"

var (
	// Global flags
	verbose    bool
	configPath string
	modelPath  string

	cfg       *config.Config
	appLogger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "boardsight",
	Short:   "Chess board image recognition and accuracy statistics",
	Version: version,
	Long: `boardsight slices 400x400 chess board images into 64 squares, classifies
each square with a trained CNN and reports how often the classifier is wrong.

Images are labelled by their file name: a FEN placement with '-' between ranks,
for example 1B1K4-1p5N-7p-1qp5-n1P5-8-6k1-b7.jpeg.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Sync()
		}
	},
}

func setup() error {
	var err error
	cfg, err = config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if modelPath != "" {
		cfg.Model.Path = modelPath
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := logger.Level(cfg.Logging.Level)
	if verbose {
		level = logger.LevelDebug
	}
	appLogger, err = logger.New(level, cfg.Logging.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadPredictor loads the configured checkpoint. The caller closes the model.
func loadPredictor() (*predict.Predictor, *model.SquareCNN, error) {
	if !model.ModelExists(cfg.Model.Path) {
		return nil, nil, fmt.Errorf("model checkpoint not found: %s", cfg.Model.Path)
	}

	cnn, err := model.LoadSquareCNN(cfg.Model.Path, cfg.Model.BatchSize)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Debug("Model loaded",
		zap.String("path", cfg.Model.Path),
		zap.Int("batch_size", cnn.BatchSize()),
	)

	return predict.NewPredictor(cnn, cfg.Model.Path, appLogger), cnn, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVarP(&modelPath, "model", "m", "", "Model checkpoint (overrides config)")

	rootCmd.AddCommand(predictDirCmd)
	rootCmd.AddCommand(predictFileCmd)
	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
