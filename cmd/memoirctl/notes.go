package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/maruel/memoir/internal/storage"
	"github.com/spf13/cobra"
)

type noteView struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	Text  string   `json:"text,omitempty"`
}

func toNoteView(n *storage.Note, withText bool) noteView {
	v := noteView{ID: n.ID, Title: n.Title, Tags: n.Tags}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if withText {
		v.Text = n.Text
	}
	return v
}

func newNotesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Inspect notes",
	}
	cmd.AddCommand(newNotesListCmd(a), newNotesShowCmd(a))
	return cmd
}

func newNotesListCmd(a *app) *cobra.Command {
	var user, tag, format string
	var withText bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the notes of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			u, err := lookupUser(st, user)
			if err != nil {
				return err
			}
			notes := st.Notes.ListByTag(u.ID, tag)
			views := make([]noteView, 0, len(notes))
			for _, n := range notes {
				views = append(views, toNoteView(n, withText))
			}
			return render(cmd.OutOrStdout(), format, views, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tTITLE\tTAGS")
				for _, v := range views {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", v.ID, v.Title, strings.Join(v.Tags, ","))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Owner of the notes")
	cmd.Flags().StringVar(&tag, "tag", "", "Only list notes with this tag")
	cmd.Flags().BoolVar(&withText, "text", false, "Include the note text in json and yaml output")
	addOutputFlag(cmd, &format)
	return cmd
}

func newNotesShowCmd(a *app) *cobra.Command {
	var user, format string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print one note of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[0])
			}
			st, err := a.open(cmd)
			if err != nil {
				return err
			}
			u, err := lookupUser(st, user)
			if err != nil {
				return err
			}
			n, err := st.Notes.GetOwned(u.ID, id)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, toNoteView(n, true), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "# %s\n\n%s\n", n.Title, n.Text)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Owner of the note")
	addOutputFlag(cmd, &format)
	return cmd
}
