package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lore/internal/engine"
	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/ir"
	"github.com/roach88/lore/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	StatePath      string
	CandidatesPath string
	MaxResults     int
	SortBy         string
	Expand         bool
	Seed           uint64
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <pack-dir> <filter-name>",
		Short: "Run a named filter preset over a candidate file",
		Long: `Compile the rule pack, build the relationship graph from its seeds,
load game state and candidates, and run the query pipeline with the
named filter preset.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.StatePath, "state", "s", "", "YAML game-state file (required)")
	cmd.Flags().StringVarP(&opts.CandidatesPath, "candidates", "c", "", "YAML candidate file (required)")
	cmd.Flags().IntVar(&opts.MaxResults, "max-results", 0, "result cap (0 = engine default)")
	cmd.Flags().StringVar(&opts.SortBy, "sort", "", "sort strategy (relevance|priority|timestamp)")
	cmd.Flags().BoolVar(&opts.Expand, "expand", false, "expand graph-related candidates")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for probability and dice conditions (0 = random)")
	cmd.MarkFlagRequired("state")
	cmd.MarkFlagRequired("candidates")
	return cmd
}

func runQuery(opts *QueryOptions, packDir, filterName string, cmd *cobra.Command) error {
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

	filter, ok := pack.Filters[filterName]
	if !ok {
		if ferr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("filter %q not in pack", filterName), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitCommandError, Message: "unknown filter " + filterName}
	}

	state, err := LoadState(opts.StatePath)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	candidates, err := LoadCandidates(opts.CandidatesPath)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	eng, err := buildEngine(candidates, pack.Relationships, opts.Seed, formatter)
	if err != nil {
		if ferr := formatter.Error(ErrCodeGeneric, err.Error(), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}

	ctx := &eval.Context{State: state}
	result, err := eng.QueryEntities(ctx, filter, ir.QueryOptions{
		MaxResults:    opts.MaxResults,
		SortBy:        ir.SortStrategy(opts.SortBy),
		ExpandRelated: opts.Expand,
	})
	if err != nil {
		if ferr := formatter.Error(ErrCodeQuery, err.Error(), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitFailure, Message: "query failed", Err: err}
	}

	return formatter.SuccessText(result, func(w io.Writer) {
		fmt.Fprintf(w, "%d of %d candidate(s) matched (sorted by %s)\n",
			len(result.Entities), result.Metadata.CandidateCount, result.Metadata.SortedBy)
		for _, c := range result.Entities {
			fmt.Fprintf(w, "  %-24s score %.3f\n", c.ID, result.RelevanceScores[c.ID])
		}
	})
}

// buildEngine wires an engine over a static candidate source and seeds
// its graph from the pack's relationship edges.
func buildEngine(candidates []ir.Candidate, rels []ir.Relationship, seed uint64, formatter *OutputFormatter) (*engine.Engine, error) {
	var engineOpts []engine.EngineOption
	if seed != 0 {
		engineOpts = append(engineOpts, engine.WithRandomSource(eval.NewSeededSource(seed)))
	}

	eng, err := engine.New(query.NewStaticSource(candidates...), engineOpts...)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if err := eng.AddRelationship(rel); err != nil {
			formatter.VerboseLog("skipping edge %s -> %s: %v", rel.SourceID, rel.TargetID, err)
		}
	}
	return eng, nil
}
