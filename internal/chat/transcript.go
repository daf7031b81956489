// Package chat keeps per-session assistant transcripts in the replica and
// runs the optimistic send flow: the outgoing message is visible immediately,
// confirmed when the model replies, and dropped from the transcript if the
// send fails.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lectern/client/internal/forum"
	"lectern/client/internal/replica"
)

// ErrEmptyMessage is returned before anything reaches the replica or the
// network.
var ErrEmptyMessage = errors.New("chat: message is empty")

// Sender is the remote boundary a transcript talks through. *api.Client
// satisfies it directly for the student assistant; Insight adapts the
// lecturer endpoint to the same shape.
type Sender interface {
	ChatHistory(ctx context.Context, sessionID string) ([]forum.ChatMessage, error)
	SendChat(ctx context.Context, sessionID, message string) (string, error)
}

// StudentSessionKey derives the per-student session identifier the server
// partitions assistant history by.
func StudentSessionKey(studentID int64) string {
	return fmt.Sprintf("student-%d", studentID)
}

// LecturerSessionKey is the shared session for the lecturer insight
// assistant.
const LecturerSessionKey = "lecturer-insight"

// Transcript is one session's conversation. History loads lazily on first
// use and stays authoritative for everything the server already stored;
// messages sent through Send are layered on top until confirmed.
type Transcript struct {
	store     *replica.Store
	remote    Sender
	sessionID string
}

func NewTranscript(store *replica.Store, remote Sender, sessionID string) *Transcript {
	return &Transcript{store: store, remote: remote, sessionID: sessionID}
}

func (t *Transcript) SessionID() string {
	return t.sessionID
}

// Load replaces the local transcript with the server's stored history.
func (t *Transcript) Load(ctx context.Context) error {
	history, err := t.remote.ChatHistory(ctx, t.sessionID)
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	t.store.ReplaceMessages(t.sessionID, history)
	return nil
}

// Send posts one message. The user's message appears in the transcript
// before the request goes out; a failed send removes it again so the
// transcript never shows a message the server does not have.
func (t *Transcript) Send(ctx context.Context, text string) (forum.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return forum.ChatMessage{}, ErrEmptyMessage
	}

	outgoing := forum.ChatMessage{
		Role:      forum.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
		LocalID:   uuid.NewString(),
		Pending:   true,
	}
	t.store.AppendMessage(t.sessionID, outgoing)

	response, err := t.remote.SendChat(ctx, t.sessionID, text)
	if err != nil {
		t.store.DropMessage(t.sessionID, outgoing.LocalID)
		return forum.ChatMessage{}, fmt.Errorf("send chat: %w", err)
	}

	t.store.ConfirmMessage(t.sessionID, outgoing.LocalID)
	reply := forum.ChatMessage{
		Role:      forum.RoleModel,
		Content:   response,
		Timestamp: time.Now().UTC(),
	}
	t.store.AppendMessage(t.sessionID, reply)
	return reply, nil
}

// Messages returns the transcript in order, pending tail included.
func (t *Transcript) Messages() []forum.ChatMessage {
	return t.store.Messages(t.sessionID)
}

// InsightAuthority is the slice of the remote surface the lecturer
// assistant needs.
type InsightAuthority interface {
	ChatHistory(ctx context.Context, sessionID string) ([]forum.ChatMessage, error)
	SendInsight(ctx context.Context, query, sessionID string) (string, error)
}

// Insight adapts the lecturer endpoint to Sender so the same Transcript
// drives both assistants.
type Insight struct {
	remote InsightAuthority
}

func NewInsight(remote InsightAuthority) Insight {
	return Insight{remote: remote}
}

func (i Insight) ChatHistory(ctx context.Context, sessionID string) ([]forum.ChatMessage, error) {
	return i.remote.ChatHistory(ctx, sessionID)
}

func (i Insight) SendChat(ctx context.Context, sessionID, message string) (string, error) {
	return i.remote.SendInsight(ctx, message, sessionID)
}
