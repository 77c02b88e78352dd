package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lore/internal/graph"
)

// PathOptions holds flags for the path command.
type PathOptions struct {
	*RootOptions
	PackDir string
	MaxHops int
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PathOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "path <from-id> <to-id>",
		Short: "Find the shortest relationship path between two entities",
		Long: `Build the relationship graph from a rule pack's seeds and report the
shortest-hop path between two entity IDs. Exits 1 when no path exists.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.PackDir, "pack", "p", "", "rule pack directory (required)")
	cmd.Flags().IntVar(&opts.MaxHops, "max-hops", 0, "hop limit (0 = unbounded)")
	cmd.MarkFlagRequired("pack")
	return cmd
}

func runPath(opts *PathOptions, fromID, toID string, cmd *cobra.Command) error {
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

	path := g.FindPath(fromID, toID, opts.MaxHops)
	if path == nil {
		if ferr := formatter.Error(ErrCodeNotFound,
			fmt.Sprintf("no path from %s to %s", fromID, toID), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitFailure, Message: "no path"}
	}

	return formatter.SuccessText(path, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%d hop(s), strength %.3f, %s)\n",
			strings.Join(path.Nodes, " -> "), path.Hops, path.Strength, path.Type)
	})
}

// loadGraph compiles a pack and seeds a graph from its relationships.
func loadGraph(packDir string, formatter *OutputFormatter) (*graph.Graph, error) {
	pack, err := LoadPack(packDir)
	if err != nil {
		return nil, err
	}
	g := graph.New()
	for _, rel := range pack.Relationships {
		if err := g.AddRelationship(rel); err != nil {
			formatter.VerboseLog("skipping edge %s -> %s: %v", rel.SourceID, rel.TargetID, err)
		}
	}
	return g, nil
}
