package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Notes    int    `json:"notes"`
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUsersListCmd(a), newUsersAddCmd(a), newUsersDeleteCmd(a))
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			users := st.Users.List()
			views := make([]userView, 0, len(users))
			for _, u := range users {
				views = append(views, userView{ID: u.ID, Username: u.Username, Notes: len(st.Notes.List(u.ID))})
			}
			return render(cmd.OutOrStdout(), format, views, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tUSERNAME\tNOTES")
				for _, v := range views {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\n", v.ID, v.Username, v.Notes)
				}
				return tw.Flush()
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newUsersAddCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			u, err := st.Users.Register(args[0], password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created user %s with id %d\n", u.Username, u.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password of the new account")
	return cmd
}

func newUsersDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an account with its notes and sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			u, err := st.Users.Delete(args[0])
			if err != nil {
				return err
			}
			notes, err := st.Notes.DeleteByOwner(u.ID)
			if err != nil {
				return fmt.Errorf("user deleted but notes remain: %w", err)
			}
			sessions, err := st.Sessions.RevokeAllForUser(u.ID)
			if err != nil {
				return fmt.Errorf("user deleted but sessions remain: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s, %d notes and %d sessions\n", u.Username, notes, sessions)
			return err
		},
	}
	return cmd
}
