package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"creditwatch/internal/config"
	"creditwatch/internal/detector"
	"creditwatch/internal/framesource"
	"creditwatch/internal/history"
)

type scanOptions struct {
	framesDir string
	seasonID  string
	episode   int
	interval  time.Duration
	startAt   time.Duration
	speed     float64
	noSave    bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	opts := scanOptions{episode: -1}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Replay a directory of frames through the credits detector",
		Long: "Replay the PNG or JPEG stills under --frames, in name order, as one episode.\n" +
			"Each still covers --interval of play time. Fingerprints and the detected\n" +
			"offset are merged into the season record unless --no-save is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.framesDir, "frames", "f", "", "Directory of frame stills")
	cmd.Flags().StringVarP(&opts.seasonID, "season", "s", "", "Season identifier; empty scans without persistence")
	cmd.Flags().IntVarP(&opts.episode, "episode", "e", -1, "Episode number within the season")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "Play time covered by each still")
	cmd.Flags().DurationVar(&opts.startAt, "start", 0, "Initial play position")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "Playback rate relative to wall time")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not merge results into the season record")
	_ = cmd.MarkFlagRequired("frames")
	return cmd
}

func runScan(cmd *cobra.Command, ctx *commandContext, opts scanOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	dir, err := config.ExpandPath(strings.TrimSpace(opts.framesDir))
	if err != nil {
		return fmt.Errorf("resolve frames directory: %w", err)
	}
	if opts.speed <= 0 {
		return errors.New("--speed must be positive")
	}

	replay, err := framesource.NewReplay(dir, framesource.ReplayOptions{
		FrameInterval: opts.interval,
		Speed:         opts.speed,
		StartAt:       opts.startAt,
	})
	if err != nil {
		return err
	}
	aspect, err := replay.Aspect()
	if err != nil {
		return err
	}

	detectorOpts := []detector.Option{detector.WithLogger(logger)}
	if cfg.History.Enabled {
		ledger, err := history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer ledger.Close()
		detectorOpts = append(detectorOpts, detector.WithRecorder(ledger))
	}

	det := detector.New(detector.ConfigFrom(cfg), replay, detectorOpts...)
	defer det.Terminate()

	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	playback := detector.Playback{
		SeasonID: opts.seasonID,
		Episode:  opts.episode,
		Aspect:   aspect,
	}
	if err := det.Start(runCtx, playback); err != nil {
		return err
	}

	interrupted := false
	select {
	case <-det.Detected():
	case <-det.Done():
	case <-runCtx.Done():
		interrupted = true
	}
	replay.Stop()
	det.Stop()

	if interrupted {
		fmt.Fprintln(cmd.ErrOrStderr(), "Scan interrupted; keeping partial results")
	}
	if !opts.noSave {
		if err := det.StoreData(); err != nil {
			return err
		}
	}

	printScanResult(cmd, det.Status(), replay.Frames(), playback.Episodic() && !opts.noSave)
	return nil
}

func printScanResult(cmd *cobra.Command, status detector.Status, frames int, saved bool) {
	out := cmd.OutOrStdout()
	if status.Detected {
		how := "matched"
		if status.Reused {
			how = "reused stored offset"
		}
		fmt.Fprintf(out, "Credits detected at %s (%ds, %s)\n", formatClock(status.Offset), status.Offset, how)
	} else {
		fmt.Fprintln(out, "No credits detected")
	}
	if !status.Reused {
		fmt.Fprintf(out, "Frames replayed: %d, captured: %d, hits: %d\n",
			frames, status.Capture.Captured, status.Counters.Hits)
	}
	if saved {
		fmt.Fprintf(out, "Season record updated: %s episode %d\n", status.Playback.SeasonID, status.Playback.Episode)
	}
	if status.SessionID != "" {
		fmt.Fprintf(out, "Session: %s\n", status.SessionID)
	}
}
