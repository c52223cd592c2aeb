package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thyrook/boardsight/internal/board"
	"github.com/thyrook/boardsight/internal/vision"
)

var (
	renderOut string
	renderExt string
)

var renderCmd = &cobra.Command{
	Use:   "render <fen>...",
	Short: "Draw synthetic labelled board images",
	Long: `Renders each placement as a 400x400 board and saves it as <fen><ext> in the
output directory, ready for predict-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", ".", "Output directory")
	renderCmd.Flags().StringVar(&renderExt, "ext", "", "Image extension (default from config)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ext := renderExt
	if ext == "" {
		ext = cfg.Dataset.Extension
	}

	if err := os.MkdirAll(renderOut, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, fen := range args {
		if err := board.ValidatePlacement(fen); err != nil {
			return err
		}
		seq, err := board.ParseFEN(fen)
		if err != nil {
			return err
		}

		path, err := vision.WriteLabelledBoard(renderOut, seq, ext)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
