package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"lectern/client/internal/forum"
	"lectern/client/internal/replica"
)

type fakeSender struct {
	historyFn func(context.Context, string) ([]forum.ChatMessage, error)
	sendFn    func(context.Context, string, string) (string, error)
}

func (f *fakeSender) ChatHistory(ctx context.Context, sessionID string) ([]forum.ChatMessage, error) {
	if f.historyFn != nil {
		return f.historyFn(ctx, sessionID)
	}
	return nil, nil
}

func (f *fakeSender) SendChat(ctx context.Context, sessionID, message string) (string, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, sessionID, message)
	}
	return "", errors.New("not wired")
}

func TestSessionKeys(t *testing.T) {
	if got := StudentSessionKey(12); got != "student-12" {
		t.Fatalf("student key = %q", got)
	}
	if LecturerSessionKey != "lecturer-insight" {
		t.Fatalf("lecturer key = %q", LecturerSessionKey)
	}
}

func TestLoadReplacesTranscript(t *testing.T) {
	stored := []forum.ChatMessage{
		{Role: forum.RoleUser, Content: "hello", Timestamp: time.Now().UTC()},
		{Role: forum.RoleModel, Content: "hi, how can I help?", Timestamp: time.Now().UTC()},
	}
	remote := &fakeSender{
		historyFn: func(_ context.Context, sessionID string) ([]forum.ChatMessage, error) {
			if sessionID != "student-7" {
				t.Errorf("session id = %q", sessionID)
			}
			return stored, nil
		},
	}
	store := replica.NewStore()
	store.AppendMessage("student-7", forum.ChatMessage{Role: forum.RoleUser, Content: "stale"})

	transcript := NewTranscript(store, remote, StudentSessionKey(7))
	if err := transcript.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	messages := transcript.Messages()
	if len(messages) != 2 || messages[0].Content != "hello" {
		t.Fatalf("history not replaced: %+v", messages)
	}
}

func TestSendShowsPendingThenConfirms(t *testing.T) {
	release := make(chan struct{})
	var pendingDuringSend bool
	store := replica.NewStore()
	var transcript *Transcript
	remote := &fakeSender{
		sendFn: func(_ context.Context, _, message string) (string, error) {
			msgs := transcript.Messages()
			pendingDuringSend = len(msgs) == 1 && msgs[0].Pending && msgs[0].Content == message
			<-release
			return "interfaces describe behavior, not data", nil
		},
	}
	transcript = NewTranscript(store, remote, StudentSessionKey(7))
	close(release)

	reply, err := transcript.Send(context.Background(), "  what is an interface?  ")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !pendingDuringSend {
		t.Fatal("outgoing message was not visible while the request was in flight")
	}
	if reply.Role != forum.RoleModel || reply.Content == "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	messages := transcript.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected user+model messages, got %+v", messages)
	}
	if messages[0].Pending {
		t.Fatal("confirmed message still marked pending")
	}
	if messages[0].Content != "what is an interface?" {
		t.Fatalf("message not trimmed: %q", messages[0].Content)
	}
}

func TestSendFailureDropsPendingMessage(t *testing.T) {
	remote := &fakeSender{
		sendFn: func(context.Context, string, string) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	store := replica.NewStore()
	transcript := NewTranscript(store, remote, StudentSessionKey(7))

	if _, err := transcript.Send(context.Background(), "anyone there?"); err == nil {
		t.Fatal("expected send to fail")
	}
	if messages := transcript.Messages(); len(messages) != 0 {
		t.Fatalf("failed message left in transcript: %+v", messages)
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	called := false
	remote := &fakeSender{
		sendFn: func(context.Context, string, string) (string, error) {
			called = true
			return "", nil
		},
	}
	transcript := NewTranscript(replica.NewStore(), remote, StudentSessionKey(7))

	if _, err := transcript.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if called {
		t.Fatal("empty message reached the network")
	}
}

type fakeInsightAuthority struct {
	sentQuery   string
	sentSession string
}

func (f *fakeInsightAuthority) ChatHistory(context.Context, string) ([]forum.ChatMessage, error) {
	return nil, nil
}

func (f *fakeInsightAuthority) SendInsight(_ context.Context, query, sessionID string) (string, error) {
	f.sentQuery = query
	f.sentSession = sessionID
	return "three students are stuck on goroutine leaks", nil
}

func TestInsightRoutesToLecturerEndpoint(t *testing.T) {
	authority := &fakeInsightAuthority{}
	transcript := NewTranscript(replica.NewStore(), NewInsight(authority), LecturerSessionKey)

	reply, err := transcript.Send(context.Background(), "what are students struggling with?")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if authority.sentQuery != "what are students struggling with?" {
		t.Fatalf("query = %q", authority.sentQuery)
	}
	if authority.sentSession != LecturerSessionKey {
		t.Fatalf("session = %q", authority.sentSession)
	}
	if reply.Content == "" {
		t.Fatal("empty reply")
	}
}
