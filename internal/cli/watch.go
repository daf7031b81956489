package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"lectern/client/internal/engine"
	"lectern/client/internal/forum"
	"lectern/client/internal/poll"
)

func newWatchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the question feed",
		Long:  "Live view of the question feed, refreshed every poll interval. Keys: j/k move, 1-4 react, r refresh, q quit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model := newWatchModel(app)
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

			// Reaction failures surface in the footer instead of stderr
			// while the alternate screen is up.
			app.engine.SetNotify(func(err error) { program.Send(warnMsg{err: err}) })

			poller := poll.New(app.cfg.PollInterval,
				func(ctx context.Context) (any, error) { return app.engine.FetchForum(ctx) },
				func(snap any) {
					app.engine.ApplyForum(snap.(engine.ForumSnapshot))
					program.Send(refreshedMsg{})
				},
			)
			poller.Start(cmd.Context())
			defer poller.Stop()
			model.kick = func() { poller.Kick(cmd.Context()) }

			_, err := program.Run()
			return err
		},
	}
}

// refreshedMsg tells the view the replica changed under it.
type refreshedMsg struct{}

// warnMsg carries an asynchronous mutation failure into the footer.
type warnMsg struct{ err error }

type watchModel struct {
	app      *App
	kick     func()
	cursor   int
	width    int
	height   int
	warnings []string
}

func newWatchModel(app *App) *watchModel {
	return &watchModel{app: app}
}

func (m *watchModel) Init() tea.Cmd {
	return nil
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshedMsg:
		m.clampCursor()
		return m, nil

	case warnMsg:
		m.warnings = append(m.warnings, msg.err.Error())
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "j", "down":
			m.cursor++
			m.clampCursor()
		case "k", "up":
			m.cursor--
			m.clampCursor()
		case "r":
			if m.kick != nil {
				m.kick()
			}
		case "1", "2", "3", "4":
			m.react(forum.ReactionKinds()[msg.String()[0]-'1'])
		}
	}
	return m, nil
}

func (m *watchModel) react(kind forum.ReactionKind) {
	questions := m.app.store.Questions()
	if m.cursor >= len(questions) {
		return
	}
	err := m.app.engine.ToggleQuestionReaction(context.Background(), questions[m.cursor].ID, kind)
	if err != nil {
		m.warnings = append(m.warnings, err.Error())
	}
}

func (m *watchModel) clampCursor() {
	count := len(m.app.store.Questions())
	if m.cursor >= count {
		m.cursor = count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

var (
	watchTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	watchCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	watchFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	watchWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
)

func (m *watchModel) View() string {
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("lectern") + "\n\n")

	questions := m.app.store.Questions()
	if len(questions) == 0 {
		b.WriteString(mutedStyle.Render("no questions yet") + "\n")
	}
	for i, q := range questions {
		marker := "  "
		if i == m.cursor {
			marker = watchCursorStyle.Render("> ")
		}
		b.WriteString(marker + renderQuestionLine(q) + "\n")
	}

	if n := len(m.warnings); n > 0 {
		b.WriteString("\n" + watchWarnStyle.Render(m.warnings[n-1]) + "\n")
	}
	b.WriteString("\n" + watchFooterStyle.Render(fmt.Sprintf("j/k move   1-4 react (%s)   r refresh   q quit", kindList())))
	return b.String()
}
