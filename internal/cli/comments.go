package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/client/internal/forum"
)

func newCommentCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Work with comments on a question",
	}
	cmd.AddCommand(
		newCommentAddCommand(app),
		newCommentEditCommand(app),
		newCommentDeleteCommand(app),
		newCommentReactCommand(app),
	)
	return cmd
}

func newCommentAddCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <question-id> <content>",
		Short: "Comment on a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			questionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := app.requireLogin(); err != nil {
				return err
			}
			created, err := app.engine.AddComment(cmd.Context(), questionID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "posted comment #%d on question #%d\n", created.ID, questionID)
			return nil
		},
	}
}

func newCommentEditCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <comment-id> <content>",
		Short: "Edit your own comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadComment(cmd, id); err != nil {
				return err
			}
			updated, err := app.engine.EditComment(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "updated comment #%d\n", updated.ID)
			return nil
		},
	}
}

func newCommentDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete your own comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadComment(cmd, id); err != nil {
				return err
			}
			if err := app.engine.DeleteComment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "deleted comment #%d\n", id)
			return nil
		},
	}
}

func newCommentReactCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "react <comment-id> <kind>",
		Short: "Toggle a reaction on a comment",
		Long:  "Toggle a reaction on a comment. Kinds: " + kindList() + ". Reacting with your active kind removes it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadComment(cmd, id); err != nil {
				return err
			}
			if err := app.engine.ToggleCommentReaction(cmd.Context(), id, forum.ReactionKind(args[1])); err != nil {
				return err
			}
			app.engine.Flush()
			if c, ok := app.store.Comment(id); ok {
				fmt.Fprintln(app.out, renderCommentLine(c))
			}
			return nil
		},
	}
}

// loadComment resolves a bare comment id by walking the question list and
// fetching threads until the comment shows up in the replica.
func (a *App) loadComment(cmd *cobra.Command, id int64) error {
	if _, ok := a.store.Comment(id); ok {
		return nil
	}
	if err := a.engine.RefreshForum(cmd.Context()); err != nil {
		return err
	}
	for _, q := range a.store.Questions() {
		if err := a.engine.RefreshThread(cmd.Context(), q.ID); err != nil {
			return err
		}
		if _, ok := a.store.Comment(id); ok {
			return nil
		}
	}
	return fmt.Errorf("comment %d not found", id)
}
