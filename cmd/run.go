package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/presenter"
)

type RunOptions struct {
	Duration time.Duration
	Interval time.Duration
}

func NewRunCommand(root *rootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the capture pipeline headless",
		Long:  "Run the capture pipeline without a window and print a stats line periodically until interrupted.",
		Example: `  stream-console run --fps 30 --width 1920 --height 1080
  stream-console run --area window --window "Game" --duration 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&opts.Duration, "duration", 0, "Stop after this long (0 = until interrupted)")
	flags.DurationVar(&opts.Interval, "interval", time.Second, "Stats print interval")

	return cmd
}

func runHeadless(cmd *cobra.Command, root *rootOptions, opts *RunOptions) error {
	cfg, logger, err := root.load(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}
	root.startDebug(ctx, cfg, logger)

	svc := capture.NewCaptureService(logger, cfg, root.open)
	fatal := make(chan error, 1)
	svc.SetFatalHandler(func(err error) {
		select {
		case fatal <- err:
		default:
		}
	})
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	defer svc.Stop()

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			svc.Stop()
			fmt.Fprintln(out, presenter.FormatStats(svc.Stats()))
			return nil
		case err := <-fatal:
			return fmt.Errorf("capture failed: %w", err)
		case <-t.C:
			fmt.Fprintln(out, presenter.FormatStats(svc.Stats()))
		}
	}
}
