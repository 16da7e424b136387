package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema [KIND]",
		Short: "List the stored kinds or print the JSON schema of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "KIND\tRECORDS\tFILE")
				for _, name := range st.DB.Kinds() {
					k, err := st.DB.Kind(name)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", k.Name(), k.Len(), k.Path())
				}
				return tw.Flush()
			}
			s, err := st.DB.Schema(args[0])
			if err != nil {
				return err
			}
			if format == formatTable {
				format = formatJSON
			}
			return render(w, format, s, func(io.Writer) error { return nil })
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatJSON, "Output format: json or yaml")
	return cmd
}
