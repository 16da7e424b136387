package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/maruel/memoir/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type app struct {
	dataDir string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "memoirctl",
		Short: "Administer a memoir data directory",
		Long: `memoirctl inspects and edits the users and notes of a memoir data
directory. Stop the server before making changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "./data", "Data directory")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.AddCommand(
		newUsersCmd(a),
		newNotesCmd(a),
		newSessionsCmd(a),
		newConvertCmd(),
		newImportCmd(a),
		newSchemaCmd(a),
	)
	return root
}

// open loads the data directory. User quotas are not enforced offline.
func (a *app) open(cmd *cobra.Command) (*storage.Storage, error) {
	if _, err := os.Stat(a.dataDir); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	return storage.Open(cmd.Context(), a.dataDir, storage.Options{})
}

// lookupUser returns the user named name.
func lookupUser(st *storage.Storage, name string) (*storage.User, error) {
	u, ok := st.Users.Find(name)
	if !ok {
		return nil, fmt.Errorf("user %q: %w", name, storage.ErrNotFound)
	}
	return u, nil
}

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func addOutputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", formatTable, "Output format: table, json or yaml")
}

// render writes v as JSON or YAML, or calls table for the default format.
func render(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch format {
	case formatTable, "":
		return table(w)
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	case formatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeYAML writes v as YAML using its JSON field names and order.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	clearStyle(&node)
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(&node); err != nil {
		return err
	}
	return e.Close()
}

// clearStyle drops the flow and quoting styles inherited from JSON.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
