package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"creditwatch/internal/store"
)

var titleCaser = cases.Title(language.English)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and manage persisted season records",
	}

	storeCmd.AddCommand(newStoreListCommand(ctx))
	storeCmd.AddCommand(newStoreShowCommand(ctx))
	storeCmd.AddCommand(newStoreClearCommand(ctx))

	return storeCmd
}

func newStoreListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List season records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			paths, err := store.Records(cfg.Paths.StoreDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintf(out, "No season records in %s\n", cfg.Paths.StoreDir)
				return nil
			}

			rows := make([][]string, 0, len(paths))
			for _, path := range paths {
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				summary, err := store.Inspect(path)
				if err != nil {
					rows = append(rows, []string{name, "-", "-", "-", "unreadable"})
					continue
				}
				rows = append(rows, []string{
					name,
					summary.Size.String(),
					strconv.Itoa(len(summary.Episodes())),
					strconv.Itoa(summary.Fingerprints()),
					"ok",
				})
			}
			fmt.Fprintln(out, renderTable(tableView{
				Headers: []string{"Record", "Hash", "Episodes", "Fingerprints", "Status"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			}))
			return nil
		},
	}
}

func newStoreShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show SEASON",
		Short: "Show the fingerprints and offsets stored for a season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			season := strings.TrimSpace(args[0])
			path := store.Path(cfg.Paths.StoreDir, season)
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no record for season %q (looked for %s)", season, path)
			}
			summary, err := store.Inspect(path)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}

			episodes := summary.Episodes()
			rows := make([][]string, 0, len(episodes))
			detected := 0
			for _, episode := range episodes {
				offset := "-"
				if stored, ok := summary.Offsets[episode]; ok {
					if stored == nil {
						offset = "none found"
					} else {
						offset = formatClock(*stored)
						detected++
					}
				}
				rows = append(rows, []string{
					strconv.Itoa(episode),
					strconv.Itoa(summary.Frames[episode]),
					offset,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Record: %s\n", summary.Path)
			fmt.Fprintf(out, "Format version: %g, hash size: %s\n", summary.Version, summary.Size)
			if summary.Skipped > 0 {
				fmt.Fprintf(out, "Skipped entries: %d\n", summary.Skipped)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "Record holds no episodes")
				return nil
			}
			fmt.Fprintln(out, renderTable(tableView{
				Title:   titleCaser.String(season),
				Headers: []string{"Episode", "Fingerprints", "Credits"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignRight, alignRight, alignRight},
				Footer: []string{
					"Total",
					strconv.Itoa(summary.Fingerprints()),
					fmt.Sprintf("%d/%d", detected, len(episodes)),
				},
			}))
			return nil
		},
	}
}

func newStoreClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear SEASON",
		Short: "Delete the record stored for a season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			season := strings.TrimSpace(args[0])
			path := store.Path(cfg.Paths.StoreDir, season)
			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "No record for season %q\n", season)
				return nil
			}
			if err := store.Remove(cfg.Paths.StoreDir, season); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %s\n", path)
			return nil
		},
	}
}
