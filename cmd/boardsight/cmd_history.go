package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thyrook/boardsight/internal/report"
	"github.com/thyrook/boardsight/internal/storage"
)

var (
	historyLimit  int
	historyShow   uint64
	historyPrune  int
	historyExport string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, inspect or prune recorded folder reports",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of reports to list (0 for all)")
	historyCmd.Flags().Uint64Var(&historyShow, "show", 0, "Print the summary of one report")
	historyCmd.Flags().IntVar(&historyPrune, "prune", -1, "Keep only the newest N reports")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "Write every stored report to a JSON file")
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := storage.NewHistory(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()

	switch {
	case historyShow > 0:
		r, err := h.Get(historyShow)
		if err != nil {
			return err
		}
		fmt.Fprint(out, r.Summary())
		return nil

	case historyPrune >= 0:
		removed, err := h.Prune(historyPrune)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d reports\n", removed)
		return nil

	case historyExport != "":
		if err := h.ExportToJSON(historyExport); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", historyExport)
		return nil
	}

	entries, err := h.List(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No reports recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIMESTAMP\tFILES\tFILE ERR\tFIELD ERR\tFOLDER")
	for _, e := range entries {
		r := e.Report
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.4f\t%.4f\t%s\n",
			e.Seq, r.Timestamp.Format(report.TimestampLayout),
			r.TotalFiles, r.FileErrorRatio, r.FieldErrorRatio, r.Folder)
	}
	return tw.Flush()
}
