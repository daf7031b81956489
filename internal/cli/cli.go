// Package cli wires the replica, engine, and session store into the
// lectern command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lectern/client/internal/api"
	"lectern/client/internal/config"
	"lectern/client/internal/engine"
	"lectern/client/internal/replica"
	"lectern/client/internal/session"
)

// App carries the shared state every subcommand runs against. It is
// assembled once in the root command's PersistentPreRunE.
type App struct {
	cfg      config.Config
	out      io.Writer
	client   *api.Client
	store    *replica.Store
	engine   *engine.Engine
	sessions *session.Store
}

// NewRootCommand builds the full lectern command tree.
func NewRootCommand() *cobra.Command {
	app := &App{out: os.Stdout}

	root := &cobra.Command{
		Use:           "lectern",
		Short:         "Classroom Q&A from the terminal",
		Long:          "lectern is a classroom Q&A client: ask questions, discuss them, and talk to the course assistant.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			app.teardown()
		},
	}

	root.AddCommand(
		newLoginCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newStatusCommand(app),
		newQuestionsCommand(app),
		newAskCommand(app),
		newShowCommand(app),
		newEditCommand(app),
		newDeleteCommand(app),
		newResolveCommand(app),
		newReactCommand(app),
		newCommentCommand(app),
		newChatCommand(app),
		newInsightCommand(app),
		newWatchCommand(app),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	a.cfg = config.Load()
	a.out = cmd.OutOrStdout()

	sessionDir := filepath.Join(a.cfg.DataDir, "session")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	sessions, err := session.Open(sessionDir)
	if err != nil {
		return err
	}
	a.sessions = sessions

	a.client = api.New(a.cfg.APIURL, a.cfg.HTTPTimeout)
	a.store = replica.NewStore()
	a.engine = engine.New(a.store, a.client)
	a.engine.SetNotify(func(err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	})

	identity, _, err := a.sessions.Load()
	switch {
	case err == nil:
		a.engine.SetViewer(identity)
	case errors.Is(err, session.ErrNoSession):
	default:
		return err
	}
	return nil
}

func (a *App) teardown() {
	if a.engine != nil {
		a.engine.Flush()
	}
	if a.sessions != nil {
		a.sessions.Close()
	}
}

// requireLogin is the shared gate for commands that mutate.
func (a *App) requireLogin() (api.Identity, error) {
	identity, ok := a.engine.Viewer()
	if !ok {
		return api.Identity{}, errors.New("not logged in, run `lectern login <username>` first")
	}
	return identity, nil
}
