package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/lore/internal/compiler"
	"github.com/roach88/lore/internal/graph"
)

// ValidateReport aggregates pack-level and graph-level findings.
type ValidateReport struct {
	PackIssues  []compiler.ValidationError `json:"pack_issues,omitempty"`
	GraphIssues []graph.ValidationIssue    `json:"graph_issues,omitempty"`
	Cycles      [][]string                 `json:"cycles,omitempty"`
	Clean       bool                       `json:"clean"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pack-dir>",
		Short: "Validate a rule pack and its relationship graph",
		Long: `Compile a rule pack, run static rule-set validation, build the
relationship graph from its seeds, and report structural issues and
circular dependencies. Exits 1 when findings exist.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, packDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pack, err := LoadPack(packDir)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	report := ValidateReport{
		PackIssues: compiler.ValidatePack(pack),
	}

	g := graph.New()
	for _, rel := range pack.Relationships {
		if err := g.AddRelationship(rel); err != nil {
			formatter.VerboseLog("skipping edge %s -> %s: %v", rel.SourceID, rel.TargetID, err)
		}
	}
	graphReport := g.Validate()
	report.GraphIssues = graphReport.Issues

	seen := make(map[string]bool)
	for _, rel := range pack.Relationships {
		if seen[rel.SourceID] {
			continue
		}
		seen[rel.SourceID] = true
		report.Cycles = append(report.Cycles, g.CircularDependencies(rel.SourceID)...)
	}
	report.Cycles = dedupeCycles(report.Cycles)

	report.Clean = len(report.PackIssues) == 0 && len(report.GraphIssues) == 0 && len(report.Cycles) == 0

	if err := formatter.SuccessText(report, func(w io.Writer) {
		if report.Clean {
			fmt.Fprintln(w, "Pack is valid: no findings")
			return
		}
		for _, issue := range report.PackIssues {
			fmt.Fprintf(w, "pack: %s\n", issue.Error())
		}
		for _, issue := range report.GraphIssues {
			fmt.Fprintf(w, "graph: [%s] %s\n", issue.Code, issue.Message)
		}
		for _, cycle := range report.Cycles {
			fmt.Fprintf(w, "cycle: %v\n", cycle)
		}
	}); err != nil {
		return err
	}

	if !report.Clean {
		return &ExitError{Code: ExitFailure, Message: "validation findings"}
	}
	return nil
}

// dedupeCycles removes cycles that contain the same node set.
func dedupeCycles(cycles [][]string) [][]string {
	seen := make(map[string]bool, len(cycles))
	var out [][]string
	for _, cycle := range cycles {
		key := cycleKey(cycle)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cycle)
	}
	return out
}

func cycleKey(cycle []string) string {
	members := make(map[string]bool, len(cycle))
	for _, id := range cycle {
		members[id] = true
	}
	key := ""
	for _, id := range sortedKeys(members) {
		key += id + "|"
	}
	return key
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
