package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/memoir/internal/convert"
	"github.com/maruel/memoir/internal/storage"
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	var charset bool
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Print the text extracted from a document",
		Long: "Print the text extracted from a document. Supported extensions: " +
			strings.Join(convert.Default().Extensions(), ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if charset {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				name := convert.DetectCharset(data)
				if name == "" {
					name = "unknown"
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
				return err
			}
			text, err := convertFile(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().BoolVar(&charset, "charset", false, "Print the detected character set instead of the text")
	return cmd
}

func convertFile(cmd *cobra.Command, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return convert.Default().Convert(cmd.Context(), filepath.Base(path), f)
}

func newImportCmd(a *app) *cobra.Command {
	var user, title, tags string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Convert a document and store it as a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			u, err := lookupUser(st, user)
			if err != nil {
				return err
			}
			text, err := convertFile(cmd, args[0])
			if err != nil {
				return err
			}
			d := st.Notes.Draft(u.ID, args[0], text)
			if title != "" {
				d.Title = title
			}
			n, err := st.Notes.Create(u.ID, d.Title, d.Text, storage.ParseTags(tags))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created note %d %q\n", n.ID, n.Title)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Owner of the new note")
	cmd.Flags().StringVar(&title, "title", "", "Title, defaults to the file name without extension")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	return cmd
}
