package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/client/internal/chat"
)

func newChatCommand(app *App) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the course assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := app.requireLogin()
			if err != nil {
				return err
			}
			transcript := chat.NewTranscript(app.store, app.client, chat.StudentSessionKey(identity.ID))
			return app.runChat(cmd, transcript, args, history)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "print the stored transcript instead of sending")
	return cmd
}

func newInsightCommand(app *App) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "insight [query]",
		Short: "Ask the lecturer assistant about class activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireLogin(); err != nil {
				return err
			}
			transcript := chat.NewTranscript(app.store, chat.NewInsight(app.client), chat.LecturerSessionKey)
			return app.runChat(cmd, transcript, args, history)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "print the stored transcript instead of sending")
	return cmd
}

func (a *App) runChat(cmd *cobra.Command, transcript *chat.Transcript, args []string, historyOnly bool) error {
	if historyOnly {
		if err := transcript.Load(cmd.Context()); err != nil {
			return err
		}
		messages := transcript.Messages()
		if len(messages) == 0 {
			fmt.Fprintln(a.out, "no messages yet")
			return nil
		}
		for _, msg := range messages {
			fmt.Fprintln(a.out, renderChatMessage(msg))
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("nothing to send, pass a message or use --history")
	}
	reply, err := transcript.Send(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderChatMessage(reply))
	return nil
}
