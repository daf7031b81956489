package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lectern/client/internal/forum"
)

func newQuestionsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "questions",
		Aliases: []string{"ls"},
		Short:   "List all questions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.engine.RefreshForum(cmd.Context()); err != nil {
				return err
			}
			questions := app.store.Questions()
			if len(questions) == 0 {
				fmt.Fprintln(app.out, "no questions yet")
				return nil
			}
			for _, q := range questions {
				fmt.Fprintln(app.out, renderQuestionLine(q))
			}
			return nil
		},
	}
}

func newAskCommand(app *App) *cobra.Command {
	var tags string
	cmd := &cobra.Command{
		Use:   "ask <content>",
		Short: "Post a new question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireLogin(); err != nil {
				return err
			}
			created, err := app.engine.AskQuestion(cmd.Context(), strings.Join(args, " "), forum.ParseTags(tags))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "posted question #%d\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	return cmd
}

func newShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <question-id>",
		Short: "Show a question and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.engine.RefreshThread(cmd.Context(), id); err != nil {
				return err
			}
			question, ok := app.store.Question(id)
			if !ok {
				return fmt.Errorf("question %d not found", id)
			}
			fmt.Fprintln(app.out, renderQuestionDetail(question))
			comments := app.store.Comments(id)
			if len(comments) == 0 {
				fmt.Fprintln(app.out, mutedStyle.Render("no comments yet"))
				return nil
			}
			for _, c := range comments {
				fmt.Fprintln(app.out, renderCommentLine(c))
			}
			return nil
		},
	}
}

func newEditCommand(app *App) *cobra.Command {
	var tags string
	cmd := &cobra.Command{
		Use:   "edit <question-id> <content>",
		Short: "Edit your own question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadQuestion(cmd, id); err != nil {
				return err
			}
			updated, err := app.engine.EditQuestion(cmd.Context(), id, strings.Join(args[1:], " "), forum.ParseTags(tags))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "updated question #%d\n", updated.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags, replaces the existing set")
	return cmd
}

func newDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <question-id>",
		Short: "Delete your own question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadQuestion(cmd, id); err != nil {
				return err
			}
			if err := app.engine.DeleteQuestion(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "deleted question #%d\n", id)
			return nil
		},
	}
}

func newResolveCommand(app *App) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "resolve <question-id>",
		Short: "Mark your own question resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadQuestion(cmd, id); err != nil {
				return err
			}
			updated, err := app.engine.SetQuestionResolved(cmd.Context(), id, !undo)
			if err != nil {
				return err
			}
			if updated.Resolved {
				fmt.Fprintf(app.out, "question #%d marked resolved\n", id)
			} else {
				fmt.Fprintf(app.out, "question #%d reopened\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the question unresolved instead")
	return cmd
}

func newReactCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "react <question-id> <kind>",
		Short: "Toggle a reaction on a question",
		Long:  "Toggle a reaction on a question. Kinds: " + kindList() + ". Reacting with your active kind removes it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.loadQuestion(cmd, id); err != nil {
				return err
			}
			if err := app.engine.ToggleQuestionReaction(cmd.Context(), id, forum.ReactionKind(args[1])); err != nil {
				return err
			}
			app.engine.Flush()
			if q, ok := app.store.Question(id); ok {
				fmt.Fprintln(app.out, renderQuestionLine(q))
			}
			return nil
		},
	}
}

// loadQuestion makes sure the target entity is in the replica before a
// one-shot mutation runs against it.
func (a *App) loadQuestion(cmd *cobra.Command, id int64) error {
	if _, ok := a.store.Question(id); ok {
		return nil
	}
	return a.engine.RefreshForum(cmd.Context())
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimPrefix(raw, "#")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func kindList() string {
	kinds := forum.ReactionKinds()
	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = string(kind)
	}
	return strings.Join(parts, ", ")
}
