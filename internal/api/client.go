// Package api is the typed boundary to the classroom service. One method per
// remote operation; no retries, no caching, no local state. Mutating calls
// return the canonical entity from the response so callers can reconcile
// their optimistic guesses against it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lectern/client/internal/forum"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Identity is the authority's answer to a nickname login.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type CreateQuestionInput struct {
	Author  string   `json:"author"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type UpdateQuestionInput struct {
	Username string   `json:"username"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

type ResolveInput struct {
	Username string `json:"username"`
	Resolved bool   `json:"resolved"`
}

type ReactInput struct {
	Username string             `json:"username"`
	Reaction forum.ReactionKind `json:"reaction_type"`
}

type CreateCommentInput struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type UpdateCommentInput struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// React acknowledgment statuses.
const (
	ReactAdded   = "added"
	ReactRemoved = "removed"
	ReactChanged = "changed"
)

// ReactAck acknowledges a reaction toggle. The authority sends no entity
// body, only the transition it performed.
type ReactAck struct {
	Status string `json:"status"`
}

func (c *Client) Login(ctx context.Context, username string) (Identity, error) {
	var identity Identity
	body := map[string]string{"username": username}
	err := c.do(ctx, http.MethodPost, "/login", nil, body, &identity)
	return identity, err
}

func (c *Client) ListQuestions(ctx context.Context, username string) ([]forum.Question, error) {
	var questions []forum.Question
	err := c.do(ctx, http.MethodGet, "/questions", viewerQuery(username), nil, &questions)
	return questions, err
}

func (c *Client) GetQuestion(ctx context.Context, id int64, username string) (forum.Question, error) {
	var question forum.Question
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/questions/%d", id), viewerQuery(username), nil, &question)
	return question, err
}

func (c *Client) CreateQuestion(ctx context.Context, input CreateQuestionInput) (forum.Question, error) {
	var question forum.Question
	err := c.do(ctx, http.MethodPost, "/questions", nil, input, &question)
	return question, err
}

func (c *Client) UpdateQuestion(ctx context.Context, id int64, input UpdateQuestionInput) (forum.Question, error) {
	var question forum.Question
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/questions/%d", id), nil, input, &question)
	return question, err
}

func (c *Client) DeleteQuestion(ctx context.Context, id int64, username string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/questions/%d", id), viewerQuery(username), nil, nil)
}

func (c *Client) ResolveQuestion(ctx context.Context, id int64, input ResolveInput) (forum.Question, error) {
	var question forum.Question
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/questions/%d/resolve", id), nil, input, &question)
	return question, err
}

func (c *Client) ReactQuestion(ctx context.Context, id int64, input ReactInput) (ReactAck, error) {
	var ack ReactAck
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/questions/%d/react", id), nil, input, &ack)
	return ack, err
}

func (c *Client) ListComments(ctx context.Context, questionID int64, username string) ([]forum.Comment, error) {
	var comments []forum.Comment
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/questions/%d/comments", questionID), viewerQuery(username), nil, &comments)
	return comments, err
}

func (c *Client) CreateComment(ctx context.Context, questionID int64, input CreateCommentInput) (forum.Comment, error) {
	var comment forum.Comment
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/questions/%d/comments", questionID), nil, input, &comment)
	return comment, err
}

func (c *Client) UpdateComment(ctx context.Context, id int64, input UpdateCommentInput) (forum.Comment, error) {
	var comment forum.Comment
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/comments/%d", id), nil, input, &comment)
	return comment, err
}

func (c *Client) DeleteComment(ctx context.Context, id int64, username string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", id), viewerQuery(username), nil, nil)
}

func (c *Client) ReactComment(ctx context.Context, id int64, input ReactInput) (ReactAck, error) {
	var ack ReactAck
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/comments/%d/react", id), nil, input, &ack)
	return ack, err
}

func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]forum.ChatMessage, error) {
	var messages []forum.ChatMessage
	query := url.Values{"session_id": []string{sessionID}}
	err := c.do(ctx, http.MethodGet, "/chat/history", query, nil, &messages)
	return messages, err
}

func (c *Client) SendChat(ctx context.Context, sessionID, message string) (string, error) {
	var reply struct {
		Response string `json:"response"`
	}
	body := map[string]string{"session_id": sessionID, "message": message}
	err := c.do(ctx, http.MethodPost, "/chat", nil, body, &reply)
	return reply.Response, err
}

func (c *Client) SendInsight(ctx context.Context, query, sessionID string) (string, error) {
	var reply struct {
		Response string `json:"response"`
	}
	body := map[string]string{"query": query, "session_id": sessionID}
	err := c.do(ctx, http.MethodPost, "/lecturer/insight", nil, body, &reply)
	return reply.Response, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func viewerQuery(username string) url.Values {
	if username == "" {
		return nil
	}
	return url.Values{"username": []string{username}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Status: resp.StatusCode, Detail: decodeDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeDetail pulls the {"detail": "..."} explanation out of an error body.
// A missing or malformed body yields an empty detail, not an error.
func decodeDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Detail)
}
