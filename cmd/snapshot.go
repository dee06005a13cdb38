package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/images"
)

type SnapshotOptions struct {
	Output  string
	Timeout time.Duration
}

func NewSnapshotCommand(root *rootOptions) *cobra.Command {
	opts := &SnapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a single frame to a PNG file",
		Example: `  stream-console snapshot --output frame.png
  stream-console snapshot --width 0 --height 0 --format rgba`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Output, "output", "o", "snapshot.png", "Destination PNG file")
	flags.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "How long to wait for the first frame")

	return cmd
}

func runSnapshot(cmd *cobra.Command, root *rootOptions, opts *SnapshotOptions) error {
	cfg, logger, err := root.load(cmd)
	if err != nil {
		return err
	}
	svc := capture.NewCaptureService(logger, cfg, root.open)
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	defer svc.Stop()

	frame, err := waitFrame(svc, opts.Timeout)
	if err != nil {
		return err
	}
	svc.Stop()

	img, err := images.FrameImage(frame)
	if err != nil {
		return err
	}
	data, err := images.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %dx%d %s frame #%d to %s (%s)\n",
		frame.Width, frame.Height, frame.Format, frame.Sequence, opts.Output, humanize.IBytes(uint64(len(data))))
	return nil
}

// waitFrame polls for the first published frame.
func waitFrame(svc capture.CaptureService, timeout time.Duration) (capture.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		if f, ok := svc.LatestFrame(); ok {
			return f, nil
		}
		if svc.State() == capture.StateFailed {
			return capture.Frame{}, fmt.Errorf("capture failed: %w", svc.Err())
		}
		if time.Now().After(deadline) {
			return capture.Frame{}, fmt.Errorf("no frame within %s (state %s)", timeout, svc.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
