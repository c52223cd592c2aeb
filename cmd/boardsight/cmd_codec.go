package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thyrook/boardsight/internal/board"
)

var (
	encodeValidate bool
	decodeDraw     bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <fen>",
	Short: "Convert a '-' delimited FEN placement to a 64 character sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <sequence>",
	Short: "Convert a 64 character sequence to a '-' delimited FEN placement",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	encodeCmd.Flags().BoolVar(&encodeValidate, "validate", false, "Also check that every rank sums to 8")
	decodeCmd.Flags().BoolVar(&decodeDraw, "draw", false, "Print a board diagram")
}

func runEncode(cmd *cobra.Command, args []string) error {
	fen := args[0]
	if encodeValidate {
		if err := board.ValidatePlacement(fen); err != nil {
			return err
		}
	}

	seq, err := board.Encode(fen)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), seq)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	fen, err := board.Decode(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, fen)

	if decodeDraw {
		seq, err := board.ParseSequence(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, seq.Draw())
	}
	return nil
}
