package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/ir"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	StatePath string
	Seed      uint64
}

// EvalResult is the data payload of an eval run.
type EvalResult struct {
	Condition string      `json:"condition"`
	Passed    bool        `json:"passed"`
	Report    eval.Report `json:"report"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <pack-dir> <condition-name>",
		Short: "Evaluate a named condition against a game state",
		Long: `Compile the rule pack, load a YAML game-state snapshot, and evaluate
one named condition. Exits 1 when the condition fails.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.StatePath, "state", "s", "", "YAML game-state file (required)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for probability and dice conditions (0 = random)")
	cmd.MarkFlagRequired("state")
	return cmd
}

func runEval(opts *EvalOptions, packDir, condName string, cmd *cobra.Command) error {
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

	cond, ok := pack.Conditions[condName]
	if !ok {
		if ferr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("condition %q not in pack", condName), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitCommandError, Message: "unknown condition " + condName}
	}

	state, err := LoadState(opts.StatePath)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	evaluator := newEvaluator(opts.Seed)
	ctx := &eval.Context{State: state}
	report := evaluator.EvaluateAll(ctx, []ir.Condition{cond})

	result := EvalResult{
		Condition: condName,
		Passed:    report.AllPassed(),
		Report:    report,
	}

	if err := formatter.SuccessText(result, func(w io.Writer) {
		verdict := "FAIL"
		if result.Passed {
			verdict = "PASS"
		}
		fmt.Fprintf(w, "%s %s (confidence %.2f)\n", verdict, condName, report.Confidence())
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
	}); err != nil {
		return err
	}

	if !result.Passed {
		return &ExitError{Code: ExitFailure, Message: "condition failed"}
	}
	return nil
}

// newEvaluator builds an evaluator, seeded when the caller asks for
// reproducible random draws.
func newEvaluator(seed uint64) *eval.Evaluator {
	if seed != 0 {
		return eval.New(eval.WithRandomSource(eval.NewSeededSource(seed)))
	}
	return eval.New()
}
