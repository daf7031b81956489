package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lectern/client/internal/forum"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return New(server.URL, 5*time.Second), server
}

func TestLogin(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["username"] != "ada" {
			t.Errorf("expected username ada, got %q", body["username"])
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 42, "username": "ada"})
	}))
	defer server.Close()

	identity, err := client.Login(context.Background(), "ada")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if identity.ID != 42 || identity.Username != "ada" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestListQuestionsCarriesViewer(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("username"); got != "ada" {
			t.Errorf("expected viewer ada, got %q", got)
		}
		json.NewEncoder(w).Encode([]forum.Question{{
			ID:           1,
			Author:       "ada",
			Content:      "how do goroutines work?",
			Tags:         []string{"go"},
			Reactions:    map[forum.ReactionKind]int{forum.ReactionLike: 2},
			UserReaction: forum.ReactionLike,
			CommentCount: 3,
		}})
	}))
	defer server.Close()

	questions, err := client.ListQuestions(context.Background(), "ada")
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	q := questions[0]
	if q.UserReaction != forum.ReactionLike {
		t.Errorf("expected viewer reaction like, got %q", q.UserReaction)
	}
	if q.CommentCount != 3 {
		t.Errorf("expected comment_count 3 from server, got %d", q.CommentCount)
	}
}

func TestReactQuestionDecodesAck(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions/9/react" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var input ReactInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if input.Reaction != forum.ReactionFunny {
			t.Errorf("expected reaction_type funny, got %q", input.Reaction)
		}
		json.NewEncoder(w).Encode(ReactAck{Status: ReactAdded})
	}))
	defer server.Close()

	ack, err := client.ReactQuestion(context.Background(), 9, ReactInput{Username: "ada", Reaction: forum.ReactionFunny})
	if err != nil {
		t.Fatalf("ReactQuestion failed: %v", err)
	}
	if ack.Status != ReactAdded {
		t.Fatalf("expected status added, got %q", ack.Status)
	}
}

func TestServerRejectionCarriesDetail(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "only the author can edit"})
	}))
	defer server.Close()

	_, err := client.UpdateQuestion(context.Background(), 5, UpdateQuestionInput{Username: "bob", Content: "hijack"})
	if err == nil {
		t.Fatal("expected error for 403")
	}
	serverErr, ok := IsServerRejected(err)
	if !ok {
		t.Fatalf("expected ServerError, got %T: %v", err, err)
	}
	if serverErr.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", serverErr.Status)
	}
	if serverErr.Detail != "only the author can edit" {
		t.Errorf("unexpected detail %q", serverErr.Detail)
	}
}

func TestServerRejectionWithoutBody(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := client.SendChat(context.Background(), "student-1", "hello")
	serverErr, ok := IsServerRejected(err)
	if !ok {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.Status != http.StatusServiceUnavailable || serverErr.Detail != "" {
		t.Fatalf("unexpected rejection: %+v", serverErr)
	}
}

func TestNetworkFailureIsNotServerRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := New(server.URL, time.Second)
	server.Close()

	_, err := client.ListQuestions(context.Background(), "ada")
	if err == nil {
		t.Fatal("expected network error after server close")
	}
	if _, ok := IsServerRejected(err); ok {
		t.Fatalf("transport failure misclassified as rejection: %v", err)
	}
}

func TestChatHistoryQuery(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("session_id"); got != "student-42" {
			t.Errorf("expected session_id student-42, got %q", got)
		}
		json.NewEncoder(w).Encode([]forum.ChatMessage{
			{Role: forum.RoleUser, Content: "what is a slice?"},
			{Role: forum.RoleModel, Content: "a view over an array"},
		})
	}))
	defer server.Close()

	messages, err := client.ChatHistory(context.Background(), "student-42")
	if err != nil {
		t.Fatalf("ChatHistory failed: %v", err)
	}
	if len(messages) != 2 || messages[1].Role != forum.RoleModel {
		t.Fatalf("unexpected history: %+v", messages)
	}
}

func TestDeleteQuestionSendsViewer(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/questions/3" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("username"); got != "ada" {
			t.Errorf("expected username ada, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := client.DeleteQuestion(context.Background(), 3, "ada"); err != nil {
		t.Fatalf("DeleteQuestion failed: %v", err)
	}
}
