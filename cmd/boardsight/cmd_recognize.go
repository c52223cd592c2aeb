package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thyrook/boardsight/internal/predict"
	"github.com/thyrook/boardsight/internal/vision"
)

var (
	recognizeImage  string
	recognizeScreen string
	recognizeDraw   bool
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Predict the position shown in an image or on screen",
	Long: `Predicts a board without ground truth. With --image the file is loaded as a
400x400 board; with --screen the region x,y,w,h is captured and resized. Without
either flag the capture region from the config is used.`,
	Args: cobra.NoArgs,
	RunE: runRecognize,
}

func init() {
	recognizeCmd.Flags().StringVar(&recognizeImage, "image", "", "Board image to recognize")
	recognizeCmd.Flags().StringVar(&recognizeScreen, "screen", "", "Screen region x,y,w,h to capture")
	recognizeCmd.Flags().BoolVar(&recognizeDraw, "draw", false, "Print a board diagram")
	recognizeCmd.MarkFlagsMutuallyExclusive("image", "screen")
}

// parseRegion parses "x,y,w,h"
func parseRegion(s string) (vision.CaptureRegion, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return vision.CaptureRegion{}, fmt.Errorf("invalid region %q: expected x,y,w,h", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return vision.CaptureRegion{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		vals[i] = v
	}

	return vision.CaptureRegion{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func runRecognize(cmd *cobra.Command, args []string) error {
	predictor, cnn, err := loadPredictor()
	if err != nil {
		return err
	}
	defer cnn.Close()

	var rec *predict.Recognition
	if recognizeImage != "" {
		rec, err = predictor.RecognizeFile(recognizeImage)
	} else {
		rec, err = recognizeScreenRegion(predictor)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rec.FEN)
	if recognizeDraw {
		fmt.Fprint(out, rec.Sequence.Draw())
	}
	return nil
}

func recognizeScreenRegion(predictor *predict.Predictor) (*predict.Recognition, error) {
	visionCfg := cfg.Vision
	if recognizeScreen != "" {
		region, err := parseRegion(recognizeScreen)
		if err != nil {
			return nil, err
		}
		visionCfg.CaptureRegion = region
	}

	appLogger.Debug("Capturing board", zap.String("vision", visionCfg.String()))

	img, err := vision.CaptureBoard(&visionCfg)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	return predictor.Recognize(img)
}
