package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lectern/client/internal/forum"
)

var (
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	authorStyle   = lipgloss.NewStyle().Bold(true)
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	resolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	reactionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	modelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
)

func renderQuestionLine(q forum.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", idStyle.Render(fmt.Sprintf("#%d", q.ID)), authorStyle.Render(q.Author))
	if q.Resolved {
		b.WriteString(" " + resolvedStyle.Render("[resolved]"))
	}
	if q.ID < 0 {
		b.WriteString(" " + pendingStyle.Render("[sending]"))
	}
	b.WriteString("  " + firstLine(q.Content))
	if len(q.Tags) > 0 {
		b.WriteString("  " + tagStyle.Render(renderTags(q.Tags)))
	}
	if line := renderReactions(q.Reactions, q.UserReaction); line != "" {
		b.WriteString("  " + line)
	}
	if q.CommentCount > 0 {
		b.WriteString("  " + mutedStyle.Render(fmt.Sprintf("(%d comments)", q.CommentCount)))
	}
	return b.String()
}

func renderQuestionDetail(q forum.Question) string {
	var b strings.Builder
	b.WriteString(renderQuestionLine(q) + "\n")
	if !q.CreatedAt.IsZero() {
		b.WriteString(mutedStyle.Render("asked "+q.CreatedAt.Local().Format("2006-01-02 15:04")) + "\n")
	}
	b.WriteString("\n" + q.Content + "\n")
	return b.String()
}

func renderCommentLine(c forum.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s", idStyle.Render(fmt.Sprintf("#%d", c.ID)), authorStyle.Render(c.Author))
	if c.ID < 0 {
		b.WriteString(" " + pendingStyle.Render("[sending]"))
	}
	b.WriteString("  " + firstLine(c.Content))
	if line := renderReactions(c.Reactions, c.UserReaction); line != "" {
		b.WriteString("  " + line)
	}
	return b.String()
}

// renderReactions prints non-zero counts in display order, marking the
// viewer's active choice.
func renderReactions(counts map[forum.ReactionKind]int, active forum.ReactionKind) string {
	var parts []string
	for _, kind := range forum.ReactionKinds() {
		count := counts[kind]
		if count == 0 {
			continue
		}
		part := fmt.Sprintf("%s:%d", kind, count)
		if kind == active {
			part = "*" + part
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	return reactionStyle.Render(strings.Join(parts, " "))
}

func renderTags(tags []string) string {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = forum.DisplayTag(tag)
	}
	return strings.Join(parts, " ")
}

func renderChatMessage(msg forum.ChatMessage) string {
	label := authorStyle.Render("you")
	if msg.Role == forum.RoleModel {
		label = modelStyle.Render("assistant")
	}
	line := label + "  " + msg.Content
	if msg.Pending {
		line += " " + pendingStyle.Render("[sending]")
	}
	return line
}

func firstLine(content string) string {
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[:i] + " …"
	}
	return content
}
