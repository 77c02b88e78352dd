package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lore/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompileSummary is the data payload of a successful compile.
type CompileSummary struct {
	Conditions    int                `json:"conditions"`
	Filters       int                `json:"filters"`
	Relationships int                `json:"relationships"`
	Pack          *compiler.RulePack `json:"pack,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <pack-dir>",
		Short: "Compile a CUE rule pack to IR",
		Long: `Compile a CUE rule pack (conditions, filter presets, relationship
seeds) into the engine's IR and emit it as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	return cmd
}

func runCompile(opts *CompileOptions, packDir string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Compiled %d condition(s), %d filter(s), %d relationship(s)",
		len(pack.Conditions), len(pack.Filters), len(pack.Relationships))

	if opts.Output != "" {
		if err := writePackFile(pack, opts.Output); err != nil {
			if ferr := formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil); ferr != nil {
				return ferr
			}
			return &ExitError{Code: ExitCommandError, Message: "writing output file", Err: err}
		}
	}

	summary := CompileSummary{
		Conditions:    len(pack.Conditions),
		Filters:       len(pack.Filters),
		Relationships: len(pack.Relationships),
	}
	if opts.Output == "" {
		summary.Pack = pack
	}

	return formatter.SuccessText(summary, func(w io.Writer) {
		fmt.Fprintf(w, "Compiled %d condition(s), %d filter(s), %d relationship(s)\n",
			summary.Conditions, summary.Filters, summary.Relationships)
		if opts.Output != "" {
			fmt.Fprintf(w, "IR written to %s\n", opts.Output)
		}
	})
}

func writePackFile(pack *compiler.RulePack, path string) error {
	data, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// reportLoadError renders a load failure and wraps it with the command
// exit code.
func reportLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if ferr := formatter.Error(loadErr.Code, loadErr.Message, nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitCommandError, Message: loadErr.Message}
	}
	if ferr := formatter.Error(ErrCodeGeneric, err.Error(), nil); ferr != nil {
		return ferr
	}
	return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
}
