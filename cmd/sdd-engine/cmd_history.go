package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/sdd-engine/internal/config"
	"github.com/HendryAvila/sdd-engine/internal/constitution"
)

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history <feature>",
	Short: "Show the compliance check runs recorded for a feature",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "Maximum number of runs, newest first")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root, err := config.FindProjectRoot(rootFlags.root)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("compliance history is disabled (history_db is empty)")
	}

	store, err := constitution.OpenSQLiteResultStore(config.Resolve(root, cfg.HistoryDB))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.History(args[0], historyFlags.limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "No compliance runs recorded for %s\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECKED AT\tFILES\tVIOLATIONS\tBLOCKED\tPHASE -1")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%v\n",
			r.CheckedAt.Format("2006-01-02 15:04:05"), r.FilesChecked, r.TotalViolations, r.ShouldBlock, r.RequiresPhaseMinusOne)
	}
	return w.Flush()
}
