package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// MetricsOptions holds flags for the metrics command.
type MetricsOptions struct {
	*RootOptions
	PackDir string
}

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetricsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "metrics",
		Short:         "Report connectivity metrics for a pack's relationship graph",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.PackDir, "pack", "p", "", "rule pack directory (required)")
	cmd.MarkFlagRequired("pack")
	return cmd
}

func runMetrics(opts *MetricsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	g, err := loadGraph(opts.PackDir, formatter)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	metrics := g.CalculateMetrics()
	return formatter.SuccessText(metrics, func(w io.Writer) {
		fmt.Fprintf(w, "nodes: %d  edges: %d  avg connectivity: %.2f\n",
			metrics.TotalNodes, metrics.TotalEdges, metrics.AvgConnectivity)
		for _, scc := range metrics.SCCs {
			fmt.Fprintf(w, "strongly connected: %v\n", scc)
		}
		for _, id := range metrics.Isolated {
			fmt.Fprintf(w, "isolated: %s\n", id)
		}
		for _, hub := range metrics.Hubs {
			fmt.Fprintf(w, "hub: %s (%d connections)\n", hub.ID, hub.Connections)
		}
	})
}
