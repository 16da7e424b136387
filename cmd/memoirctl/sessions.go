package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	var prune time.Duration
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Count active sessions, optionally removing expired ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if cmd.Flags().Changed("prune") {
				n, err := st.Sessions.CleanupExpired(prune)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "Removed %d expired sessions\n", n)
			}
			_, err = fmt.Fprintf(w, "%d active sessions\n", st.Sessions.CountActive())
			return err
		},
	}
	cmd.Flags().DurationVar(&prune, "prune", 0, "Remove sessions expired for longer than this")
	return cmd
}
