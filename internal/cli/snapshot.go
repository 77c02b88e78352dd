package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lore/internal/store"
)

// SnapshotOptions holds flags shared by the snapshot subcommands.
type SnapshotOptions struct {
	*RootOptions
	DBPath  string
	PackDir string
	Output  string
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Persist and restore relationship graph snapshots",
		Long: `Round-trip relationship graphs through a SQLite snapshot archive.
save builds the graph from a rule pack's seeds; load emits a stored
export as JSON; list shows the archive contents.`,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "lore-snapshots.db", "snapshot database path")

	save := &cobra.Command{
		Use:           "save <name>",
		Short:         "Save a pack's relationship graph as a named snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(opts, args[0], cmd)
		},
	}
	save.Flags().StringVarP(&opts.PackDir, "pack", "p", "", "rule pack directory (required)")
	save.MarkFlagRequired("pack")

	load := &cobra.Command{
		Use:           "load <name>",
		Short:         "Load a named snapshot and emit its export",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotLoad(opts, args[0], cmd)
		},
	}
	load.Flags().StringVarP(&opts.Output, "output", "o", "", "write export JSON to file instead of stdout")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(opts, cmd)
		},
	}

	cmd.AddCommand(save, load, list)
	return cmd
}

func openSnapshotStore(opts *SnapshotOptions, formatter *OutputFormatter) (*store.Store, error) {
	s, err := store.Open(opts.DBPath)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return nil, ferr
		}
		return nil, &ExitError{Code: ExitCommandError, Message: "opening snapshot db", Err: err}
	}
	return s, nil
}

func runSnapshotSave(opts *SnapshotOptions, name string, cmd *cobra.Command) error {
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

	s, err := openSnapshotStore(opts, formatter)
	if err != nil {
		return err
	}
	defer s.Close()

	export := g.Export()
	if err := s.Save(cmd.Context(), name, export); err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitCommandError, Message: "saving snapshot", Err: err}
	}

	return formatter.SuccessText(map[string]any{
		"name":        name,
		"total_nodes": export.Metadata.TotalNodes,
		"total_edges": export.Metadata.TotalEdges,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Saved snapshot %q (%d node(s), %d edge(s))\n",
			name, export.Metadata.TotalNodes, export.Metadata.TotalEdges)
	})
}

func runSnapshotLoad(opts *SnapshotOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSnapshotStore(opts, formatter)
	if err != nil {
		return err
	}
	defer s.Close()

	export, err := s.Load(cmd.Context(), name)
	if err != nil {
		if ferr := formatter.Error(ErrCodeNotFound, err.Error(), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitFailure, Message: "loading snapshot", Err: err}
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "encoding export", Err: err}
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			if ferr := formatter.Error(ErrCodeWriteFailed, err.Error(), nil); ferr != nil {
				return ferr
			}
			return &ExitError{Code: ExitCommandError, Message: "writing export", Err: err}
		}
		return formatter.SuccessText(map[string]any{"name": name, "output": opts.Output}, func(w io.Writer) {
			fmt.Fprintf(w, "Export written to %s\n", opts.Output)
		})
	}

	return formatter.SuccessText(export, func(w io.Writer) {
		fmt.Fprintf(w, "snapshot %q: %d node(s), %d edge(s)\n",
			name, export.Metadata.TotalNodes, export.Metadata.TotalEdges)
		data, _ := json.MarshalIndent(export, "", "  ")
		fmt.Fprintln(w, string(data))
	})
}

func runSnapshotList(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSnapshotStore(opts, formatter)
	if err != nil {
		return err
	}
	defer s.Close()

	infos, err := s.List(cmd.Context())
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitCommandError, Message: "listing snapshots", Err: err}
	}

	return formatter.SuccessText(infos, func(w io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintln(w, "no snapshots")
			return
		}
		for _, info := range infos {
			fmt.Fprintf(w, "%-24s %s  %d node(s), %d edge(s)\n",
				info.Name, info.CreatedAt.Format("2006-01-02 15:04:05"),
				info.TotalNodes, info.TotalEdges)
		}
	})
}
