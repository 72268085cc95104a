package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"creditwatch/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, season records and the history ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", ctx.displayConfigPath())
			fmt.Fprintf(out, "Debug images: %s\n", yesNo(cfg.Detector.Debug))
			fmt.Fprintf(out, "Reuse stored offsets: %s\n", yesNo(cfg.Detector.ReuseOffsets))
			fmt.Fprintln(out, renderTable(tableView{
				Headers: []string{"Check", "Status", "Detail"},
				Rows:    rows,
			}))
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
