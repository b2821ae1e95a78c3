package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ghichu/ghichu/internal/app"
	"github.com/spf13/cobra"
)

var (
	searchQuery string
	watchNote   bool
	noteTitle   string
	noteContent string
)

func printRows(w io.Writer, rows []app.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no notes)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tUPDATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Note.ID, r.Note.Title, r.CreatedAt, r.UpdatedAt)
		for _, line := range strings.Split(r.Preview, "\n") {
			fmt.Fprintf(tw, "\t  %s\t\t\n", line)
		}
	}
	tw.Flush()
}

// openHome waits for the first list snapshot.
func openHome(ctx context.Context, s *session) (*app.Home, error) {
	h := s.OpenHome(ctx)
	for h.Loading() {
		if err := await(ctx, h.Updates()); err != nil {
			h.Close()
			return nil, err
		}
	}
	if err := h.Err(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		h, err := openHome(cmd.Context(), s)
		if err != nil {
			return err
		}
		defer h.Close()
		h.SetQuery(searchQuery)
		printRows(cmd.OutOrStdout(), h.Rows())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the note list every time it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()
		h := s.OpenHome(ctx)
		defer h.Close()
		h.SetQuery(searchQuery)
		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-h.Updates():
			}
			if h.Loading() {
				continue
			}
			if err := h.Err(); err != nil {
				return err
			}
			fmt.Fprintln(out, "---")
			printRows(out, h.Rows())
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()
		sub := app.SubscribeDocument(ctx, s.client.Store, s.id, args[0], app.Draft{})
		defer sub.Cancel()
		out := cmd.OutOrStdout()
		for {
			if !watchNote {
				if err := await(ctx, sub.Updates()); err != nil {
					return err
				}
			} else {
				select {
				case <-ctx.Done():
					return nil
				case <-sub.Updates():
				}
			}
			st := sub.State()
			if st.Err != nil {
				return st.Err
			}
			if !st.Exists {
				fmt.Fprintf(out, "%s: not found\n", args[0])
			} else {
				fmt.Fprintf(out, "%s\n%s\n\ncreated: %s\nupdated: %s\n", st.Title, st.Content, app.FormatDate(st.CreatedAt), app.FormatDate(st.UpdatedAt))
			}
			if !watchNote {
				return nil
			}
			fmt.Fprintln(out, "---")
		}
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		e := s.OpenEditor(cmd.Context(), app.EditorParams{Title: noteTitle, Content: noteContent})
		defer e.Close()
		if err := e.Save(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved")
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title or content of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()
		e := s.OpenEditor(ctx, app.EditorParams{NoteID: args[0]})
		defer e.Close()
		if err := await(ctx, e.Updates()); err != nil {
			return err
		}
		if cmd.Flags().Changed("title") {
			e.SetTitle(noteTitle)
		}
		if cmd.Flags().Changed("content") {
			e.SetContent(noteContent)
		}
		if err := e.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved")
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()
		e := s.OpenEditor(cmd.Context(), app.EditorParams{NoteID: args[0]})
		defer e.Close()
		deleted, err := e.Delete(cmd.Context())
		if err != nil {
			return err
		}
		if deleted {
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, watchCmd, showCmd, newCmd, editCmd, rmCmd)
	listCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "Only notes whose title or content contains this")
	watchCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "Only notes whose title or content contains this")
	showCmd.Flags().BoolVarP(&watchNote, "watch", "w", false, "Keep printing the note as it changes")
	for _, c := range []*cobra.Command{newCmd, editCmd} {
		c.Flags().StringVarP(&noteTitle, "title", "t", "", "Note title")
		c.Flags().StringVarP(&noteContent, "content", "c", "", "Note content")
	}
	rmCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
}
