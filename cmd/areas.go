package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/soocke/stream-console/domain/capture"
)

type AreasOptions struct {
	OutputFormat string
}

type areasReport struct {
	Platform string   `json:"platform"`
	Areas    []string `json:"areas"`
	Kernel   string   `json:"kernel"`
}

func NewAreasCommand(root *rootOptions) *cobra.Command {
	opts := &AreasOptions{}

	cmd := &cobra.Command{
		Use:   "areas",
		Short: "List capture areas supported on this platform",
		Long:  "List the capture areas this build supports and the row conversion kernel the converter selects.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load(cmd)
			if err != nil {
				return err
			}
			r := areasReport{Platform: runtime.GOOS + "/" + runtime.GOARCH, Areas: areaNames(), Kernel: capture.KernelName(cfg.SIMD)}
			out := cmd.OutOrStdout()
			if opts.OutputFormat == "json" {
				b, _ := json.MarshalIndent(r, "", "  ")
				fmt.Fprintln(out, string(b))
				return nil
			}
			fmt.Fprintf(out, "Platform: %s\nKernel:   %s\nAreas:\n", r.Platform, r.Kernel)
			for _, a := range r.Areas {
				fmt.Fprintf(out, "  %s\n", a)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OutputFormat, "output", "text", "Output format (json or text)")
	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
