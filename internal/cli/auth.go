package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lectern/client/internal/session"
)

func newLoginCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in (or register) as a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := app.client.Login(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := app.sessions.Save(identity); err != nil {
				return err
			}
			app.engine.SetViewer(identity)
			fmt.Fprintf(app.out, "logged in as %s (id %d)\n", identity.Username, identity.ID)
			return nil
		},
	}
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved login",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := app.sessions.Clear(); err != nil {
				return err
			}
			app.engine.ClearViewer()
			fmt.Fprintln(app.out, "logged out")
			return nil
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active login",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			identity, err := app.requireLogin()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "%s (id %d)\n", identity.Username, identity.ID)
			return nil
		},
	}
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show login and server reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, loggedInAt, err := app.sessions.Load()
			switch {
			case errors.Is(err, session.ErrNoSession):
				fmt.Fprintln(app.out, "login:  none")
			case err != nil:
				return err
			default:
				fmt.Fprintf(app.out, "login:  %s (id %d), since %s\n",
					identity.Username, identity.ID, loggedInAt.Local().Format("2006-01-02 15:04"))
			}

			fmt.Fprintf(app.out, "server: %s ", app.cfg.APIURL)
			if err := app.client.Health(cmd.Context()); err != nil {
				fmt.Fprintf(app.out, "unreachable (%v)\n", err)
			} else {
				fmt.Fprintln(app.out, "ok")
			}
			return nil
		},
	}
}
