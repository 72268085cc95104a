package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"creditwatch/internal/history"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var seasonID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded credits detections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(ledger *history.Ledger) error {
				entries, err := ledger.List(cmd.Context(), strings.TrimSpace(seasonID), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No detections recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.DetectedAt.Local().Format(historyTimeLayout),
						e.SeasonID,
						strconv.Itoa(e.Episode),
						formatClock(e.OffsetSeconds),
						strconv.Itoa(e.Hits),
						string(e.Source),
					})
				}
				fmt.Fprintln(out, renderTable(tableView{
					Headers: []string{"Detected", "Season", "Episode", "Offset", "Hits", "Source"},
					Rows:    rows,
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&seasonID, "season", "s", "", "Only show detections for this season")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of detections to show (0 for all)")

	cmd.AddCommand(newHistorySeasonsCommand(ctx))
	return cmd
}

func newHistorySeasonsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seasons",
		Short: "Summarize detections per season",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(ledger *history.Ledger) error {
				seasons, err := ledger.Seasons(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(seasons) == 0 {
					fmt.Fprintln(out, "No detections recorded")
					return nil
				}
				rows := make([][]string, 0, len(seasons))
				for _, s := range seasons {
					rows = append(rows, []string{
						s.SeasonID,
						strconv.Itoa(s.Episodes),
						strconv.Itoa(s.Detections),
						formatTimestamp(s.LastDetected),
					})
				}
				fmt.Fprintln(out, renderTable(tableView{
					Headers: []string{"Season", "Episodes", "Detections", "Last detected"},
					Rows:    rows,
					Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				}))
				return nil
			})
		},
	}
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(historyTimeLayout)
}
