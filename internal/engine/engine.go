// Package engine is the optimistic mutation pipeline: every user-initiated
// change is applied to the replica immediately, sent to the authority, then
// reconciled against the canonical response or rolled back to the recorded
// pre-image on failure. The periodic poll remains the final tie-breaker for
// anything the pipeline got wrong in between.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"lectern/client/internal/api"
	"lectern/client/internal/forum"
	"lectern/client/internal/replica"
)

// Authority is the remote boundary the pipeline mutates through. *api.Client
// satisfies it; tests substitute func-field fakes.
type Authority interface {
	ListQuestions(ctx context.Context, username string) ([]forum.Question, error)
	GetQuestion(ctx context.Context, id int64, username string) (forum.Question, error)
	CreateQuestion(ctx context.Context, input api.CreateQuestionInput) (forum.Question, error)
	UpdateQuestion(ctx context.Context, id int64, input api.UpdateQuestionInput) (forum.Question, error)
	DeleteQuestion(ctx context.Context, id int64, username string) error
	ResolveQuestion(ctx context.Context, id int64, input api.ResolveInput) (forum.Question, error)
	ReactQuestion(ctx context.Context, id int64, input api.ReactInput) (api.ReactAck, error)
	ListComments(ctx context.Context, questionID int64, username string) ([]forum.Comment, error)
	CreateComment(ctx context.Context, questionID int64, input api.CreateCommentInput) (forum.Comment, error)
	UpdateComment(ctx context.Context, id int64, input api.UpdateCommentInput) (forum.Comment, error)
	DeleteComment(ctx context.Context, id int64, username string) error
	ReactComment(ctx context.Context, id int64, input api.ReactInput) (api.ReactAck, error)
}

type target struct {
	comment bool
	id      int64
}

// reactState tracks one entity's in-flight reaction run: the last
// server-confirmed active kind, the locally desired one, and the pre-image
// recorded when the run started.
type reactState struct {
	confirmed forum.ReactionKind
	desired   forum.ReactionKind
	inflight  bool
	qsnap     replica.QuestionSnapshot
	csnap     replica.CommentSnapshot
}

type Engine struct {
	store  *replica.Store
	remote Authority

	mu            sync.Mutex
	viewer        api.Identity
	authenticated bool
	busy          map[target]struct{}
	reacts        map[target]*reactState

	notify func(error)
	wg     sync.WaitGroup
	tempID atomic.Int64
}

func New(store *replica.Store, remote Authority) *Engine {
	return &Engine{
		store:  store,
		remote: remote,
		busy:   make(map[target]struct{}),
		reacts: make(map[target]*reactState),
		notify: func(err error) { log.Printf("engine: %v", err) },
	}
}

// SetNotify installs the sink for errors from asynchronous reaction sends.
// Synchronous mutations return their errors directly.
func (e *Engine) SetNotify(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		e.notify = fn
	}
}

// SetViewer switches the active identity. The replica is cleared: every
// viewer-scoped projection the old identity fetched is invalid for the new
// one, and the caller is expected to kick a refresh.
func (e *Engine) SetViewer(identity api.Identity) {
	e.mu.Lock()
	e.viewer = identity
	e.authenticated = true
	e.mu.Unlock()
	e.store.Clear()
}

// ClearViewer drops the identity, returning the engine to anonymous reads.
func (e *Engine) ClearViewer() {
	e.mu.Lock()
	e.viewer = api.Identity{}
	e.authenticated = false
	e.mu.Unlock()
	e.store.Clear()
}

// Viewer returns the active identity, if any.
func (e *Engine) Viewer() (api.Identity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewer, e.authenticated
}

// Flush blocks until in-flight reaction senders settle. Tests and one-shot
// CLI commands call it before reading final state.
func (e *Engine) Flush() {
	e.wg.Wait()
}

// ForumSnapshot is a fetched authoritative question list, split from its
// application so the poller can discard stale results.
type ForumSnapshot struct {
	Questions []forum.Question
}

func (e *Engine) FetchForum(ctx context.Context) (ForumSnapshot, error) {
	viewer, _ := e.Viewer()
	questions, err := e.remote.ListQuestions(ctx, viewer.Username)
	if err != nil {
		return ForumSnapshot{}, fmt.Errorf("list questions: %w", err)
	}
	return ForumSnapshot{Questions: questions}, nil
}

func (e *Engine) ApplyForum(snap ForumSnapshot) {
	e.store.ReplaceQuestions(snap.Questions)
}

// RefreshForum is fetch-and-apply for callers without a poller in between.
func (e *Engine) RefreshForum(ctx context.Context) error {
	snap, err := e.FetchForum(ctx)
	if err != nil {
		return err
	}
	e.ApplyForum(snap)
	return nil
}

// ThreadSnapshot is one question plus its comment list.
type ThreadSnapshot struct {
	Question forum.Question
	Comments []forum.Comment
}

func (e *Engine) FetchThread(ctx context.Context, questionID int64) (ThreadSnapshot, error) {
	viewer, _ := e.Viewer()
	question, err := e.remote.GetQuestion(ctx, questionID, viewer.Username)
	if err != nil {
		return ThreadSnapshot{}, fmt.Errorf("get question %d: %w", questionID, err)
	}
	comments, err := e.remote.ListComments(ctx, questionID, viewer.Username)
	if err != nil {
		return ThreadSnapshot{}, fmt.Errorf("list comments for %d: %w", questionID, err)
	}
	return ThreadSnapshot{Question: question, Comments: comments}, nil
}

func (e *Engine) ApplyThread(snap ThreadSnapshot) {
	e.store.SetQuestion(snap.Question)
	e.store.ReplaceComments(snap.Comments)
}

func (e *Engine) RefreshThread(ctx context.Context, questionID int64) error {
	snap, err := e.FetchThread(ctx, questionID)
	if err != nil {
		return err
	}
	e.ApplyThread(snap)
	return nil
}

// AskQuestion posts a new question: a placeholder with a temporary id is
// visible immediately and reconciled against the created entity.
func (e *Engine) AskQuestion(ctx context.Context, content string, tags []string) (forum.Question, error) {
	viewer, err := e.requireViewer()
	if err != nil {
		return forum.Question{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return forum.Question{}, validationError(CodeEmptyContent, "question content is empty")
	}
	tags = forum.NormalizeTags(tags)

	temp := forum.Question{
		ID:        e.nextTempID(),
		Author:    viewer.Username,
		Content:   content,
		Tags:      tags,
		Reactions: map[forum.ReactionKind]int{},
	}
	e.store.InsertQuestion(temp)

	canonical, err := e.remote.CreateQuestion(ctx, api.CreateQuestionInput{Author: viewer.Username, Content: content, Tags: tags})
	if err != nil {
		e.store.DiscardQuestion(temp.ID)
		return forum.Question{}, fmt.Errorf("create question: %w", err)
	}
	e.store.DiscardQuestion(temp.ID)
	e.store.InsertQuestion(canonical)
	return canonical, nil
}

// EditQuestion replaces content and tags, author-gated. Edits for the same
// entity are serialized; a second edit while one is pending is rejected.
func (e *Engine) EditQuestion(ctx context.Context, id int64, content string, tags []string) (forum.Question, error) {
	viewer, err := e.requireViewer()
	if err != nil {
		return forum.Question{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return forum.Question{}, validationError(CodeEmptyContent, "question content is empty")
	}
	tags = forum.NormalizeTags(tags)

	tgt := target{id: id}
	if err := e.acquire(tgt); err != nil {
		return forum.Question{}, err
	}
	defer e.release(tgt)

	current, ok := e.store.Question(id)
	if !ok {
		return forum.Question{}, validationError(CodeNotFound, fmt.Sprintf("question %d not found", id))
	}
	if current.Author != viewer.Username {
		return forum.Question{}, validationError(CodeNotAuthor, "only the author can edit this question")
	}

	snap, ok := e.store.PatchQuestion(id, func(q *forum.Question) {
		q.Content = content
		q.Tags = tags
	})
	if !ok {
		return forum.Question{}, validationError(CodeNotFound, fmt.Sprintf("question %d not found", id))
	}

	canonical, err := e.remote.UpdateQuestion(ctx, id, api.UpdateQuestionInput{Username: viewer.Username, Content: content, Tags: tags})
	if err != nil {
		e.store.RestoreQuestion(snap)
		return forum.Question{}, fmt.Errorf("edit question %d: %w", id, err)
	}
	e.store.SetQuestion(canonical)
	return canonical, nil
}

// DeleteQuestion removes the question from the visible list immediately. A
// failed delete re-fetches instead of reverting: reconstructing a removed
// entity from a local snapshot would resurrect possibly-stale data.
func (e *Engine) DeleteQuestion(ctx context.Context, id int64) error {
	viewer, err := e.requireViewer()
	if err != nil {
		return err
	}
	tgt := target{id: id}
	if err := e.acquire(tgt); err != nil {
		return err
	}
	defer e.release(tgt)

	current, ok := e.store.Question(id)
	if !ok {
		return validationError(CodeNotFound, fmt.Sprintf("question %d not found", id))
	}
	if current.Author != viewer.Username {
		return validationError(CodeNotAuthor, "only the author can delete this question")
	}

	e.store.RemoveQuestion(id)

	if err := e.remote.DeleteQuestion(ctx, id, viewer.Username); err != nil {
		if refreshErr := e.RefreshForum(ctx); refreshErr != nil {
			log.Printf("engine: refresh after failed delete: %v", refreshErr)
		}
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	return nil
}

// SetQuestionResolved flips the author-only resolved flag.
func (e *Engine) SetQuestionResolved(ctx context.Context, id int64, resolved bool) (forum.Question, error) {
	viewer, err := e.requireViewer()
	if err != nil {
		return forum.Question{}, err
	}
	tgt := target{id: id}
	if err := e.acquire(tgt); err != nil {
		return forum.Question{}, err
	}
	defer e.release(tgt)

	current, ok := e.store.Question(id)
	if !ok {
		return forum.Question{}, validationError(CodeNotFound, fmt.Sprintf("question %d not found", id))
	}
	if current.Author != viewer.Username {
		return forum.Question{}, validationError(CodeNotAuthor, "only the author can resolve this question")
	}

	snap, ok := e.store.PatchQuestion(id, func(q *forum.Question) {
		q.Resolved = resolved
	})
	if !ok {
		return forum.Question{}, validationError(CodeNotFound, fmt.Sprintf("question %d not found", id))
	}

	canonical, err := e.remote.ResolveQuestion(ctx, id, api.ResolveInput{Username: viewer.Username, Resolved: resolved})
	if err != nil {
		e.store.RestoreQuestion(snap)
		return forum.Question{}, fmt.Errorf("resolve question %d: %w", id, err)
	}
	e.store.SetQuestion(canonical)
	return canonical, nil
}

// AddComment posts a comment under a question. The question's comment_count
// is deliberately untouched: it is server-computed and arrives with the next
// canonical question.
func (e *Engine) AddComment(ctx context.Context, questionID int64, content string) (forum.Comment, error) {
	viewer, err := e.requireViewer()
	if err != nil {
		return forum.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return forum.Comment{}, validationError(CodeEmptyContent, "comment content is empty")
	}

	temp := forum.Comment{
		ID:         e.nextTempID(),
		QuestionID: questionID,
		Author:     viewer.Username,
		Content:    content,
		Reactions:  map[forum.ReactionKind]int{},
	}
	e.store.InsertComment(temp)

	canonical, err := e.remote.CreateComment(ctx, questionID, api.CreateCommentInput{Author: viewer.Username, Content: content})
	if err != nil {
		e.store.DiscardComment(temp.ID)
		return forum.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	e.store.DiscardComment(temp.ID)
	e.store.InsertComment(canonical)
	return canonical, nil
}

func (e *Engine) EditComment(ctx context.Context, id int64, content string) (forum.Comment, error) {
	viewer, err := e.requireViewer()
	if err != nil {
		return forum.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return forum.Comment{}, validationError(CodeEmptyContent, "comment content is empty")
	}

	tgt := target{comment: true, id: id}
	if err := e.acquire(tgt); err != nil {
		return forum.Comment{}, err
	}
	defer e.release(tgt)

	current, ok := e.store.Comment(id)
	if !ok {
		return forum.Comment{}, validationError(CodeNotFound, fmt.Sprintf("comment %d not found", id))
	}
	if current.Author != viewer.Username {
		return forum.Comment{}, validationError(CodeNotAuthor, "only the author can edit this comment")
	}

	snap, ok := e.store.PatchComment(id, func(c *forum.Comment) {
		c.Content = content
	})
	if !ok {
		return forum.Comment{}, validationError(CodeNotFound, fmt.Sprintf("comment %d not found", id))
	}

	canonical, err := e.remote.UpdateComment(ctx, id, api.UpdateCommentInput{Username: viewer.Username, Content: content})
	if err != nil {
		e.store.RestoreComment(snap)
		return forum.Comment{}, fmt.Errorf("edit comment %d: %w", id, err)
	}
	e.store.SetComment(canonical)
	return canonical, nil
}

func (e *Engine) DeleteComment(ctx context.Context, id int64) error {
	viewer, err := e.requireViewer()
	if err != nil {
		return err
	}
	tgt := target{comment: true, id: id}
	if err := e.acquire(tgt); err != nil {
		return err
	}
	defer e.release(tgt)

	current, ok := e.store.Comment(id)
	if !ok {
		return validationError(CodeNotFound, fmt.Sprintf("comment %d not found", id))
	}
	if current.Author != viewer.Username {
		return validationError(CodeNotAuthor, "only the author can delete this comment")
	}

	questionID := current.QuestionID
	e.store.RemoveComment(id)

	if err := e.remote.DeleteComment(ctx, id, viewer.Username); err != nil {
		if refreshErr := e.RefreshThread(ctx, questionID); refreshErr != nil {
			log.Printf("engine: refresh after failed delete: %v", refreshErr)
		}
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

// ToggleQuestionReaction flips the viewer's reaction locally and sends the
// intent in the background. Re-toggles while a send is in flight coalesce:
// only the latest intent reaches the wire once the current call returns.
func (e *Engine) ToggleQuestionReaction(ctx context.Context, id int64, kind forum.ReactionKind) error {
	return e.toggleReaction(ctx, target{id: id}, kind)
}

// ToggleCommentReaction is the comment mirror of ToggleQuestionReaction.
func (e *Engine) ToggleCommentReaction(ctx context.Context, id int64, kind forum.ReactionKind) error {
	return e.toggleReaction(ctx, target{comment: true, id: id}, kind)
}

func (e *Engine) toggleReaction(ctx context.Context, tgt target, kind forum.ReactionKind) error {
	e.mu.Lock()
	if !e.authenticated {
		e.mu.Unlock()
		return validationError(CodeNotAuthenticated, "must log in to react")
	}
	if !forum.ValidReaction(kind) {
		e.mu.Unlock()
		return validationError(CodeUnknownReaction, fmt.Sprintf("unknown reaction %q", kind))
	}

	state := e.reacts[tgt]
	if state != nil && state.inflight {
		// Coalesce: flip locally, remember the end state, let the running
		// sender settle the difference.
		if !e.flipLocal(tgt, kind) {
			e.mu.Unlock()
			return validationError(CodeNotFound, fmt.Sprintf("reaction target %d not found", tgt.id))
		}
		state.desired = toggled(state.desired, kind)
		e.mu.Unlock()
		return nil
	}

	before, ok := e.currentReaction(tgt)
	if !ok {
		e.mu.Unlock()
		return validationError(CodeNotFound, fmt.Sprintf("reaction target %d not found", tgt.id))
	}

	state = &reactState{confirmed: before, desired: toggled(before, kind), inflight: true}
	if tgt.comment {
		snap, ok := e.store.PatchComment(tgt.id, func(c *forum.Comment) { forum.ToggleCommentReaction(c, kind) })
		if !ok {
			e.mu.Unlock()
			return validationError(CodeNotFound, fmt.Sprintf("comment %d not found", tgt.id))
		}
		state.csnap = snap
	} else {
		snap, ok := e.store.PatchQuestion(tgt.id, func(q *forum.Question) { forum.ToggleQuestionReaction(q, kind) })
		if !ok {
			e.mu.Unlock()
			return validationError(CodeNotFound, fmt.Sprintf("question %d not found", tgt.id))
		}
		state.qsnap = snap
	}
	e.reacts[tgt] = state
	e.wg.Add(1)
	go e.runReactionSender(ctx, tgt)
	e.mu.Unlock()
	return nil
}

// runReactionSender drives one entity's reaction state toward the locally
// desired value, one request at a time, until server-confirmed and desired
// agree.
func (e *Engine) runReactionSender(ctx context.Context, tgt target) {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		state := e.reacts[tgt]
		if state == nil {
			e.mu.Unlock()
			return
		}
		if state.desired == state.confirmed {
			delete(e.reacts, tgt)
			e.mu.Unlock()
			return
		}
		viewer := e.viewer
		send := state.desired
		if send == forum.ReactionNone {
			// Toggling the confirmed kind off is expressed by re-sending it.
			send = state.confirmed
		}
		e.mu.Unlock()

		var ack api.ReactAck
		var err error
		input := api.ReactInput{Username: viewer.Username, Reaction: send}
		if tgt.comment {
			ack, err = e.remote.ReactComment(ctx, tgt.id, input)
		} else {
			ack, err = e.remote.ReactQuestion(ctx, tgt.id, input)
		}

		e.mu.Lock()
		state = e.reacts[tgt]
		if state == nil {
			e.mu.Unlock()
			return
		}
		if err != nil {
			if tgt.comment {
				e.store.RestoreComment(state.csnap)
			} else {
				e.store.RestoreQuestion(state.qsnap)
			}
			delete(e.reacts, tgt)
			e.mu.Unlock()
			e.notify(fmt.Errorf("reaction not saved: %w", err))
			return
		}
		if ack.Status == api.ReactRemoved {
			state.confirmed = forum.ReactionNone
		} else {
			state.confirmed = send
		}
		e.mu.Unlock()
	}
}

// flipLocal applies one toggle transition to the replica without recording a
// new snapshot; the run's original pre-image stays the rollback point.
func (e *Engine) flipLocal(tgt target, kind forum.ReactionKind) bool {
	if tgt.comment {
		_, ok := e.store.PatchComment(tgt.id, func(c *forum.Comment) { forum.ToggleCommentReaction(c, kind) })
		return ok
	}
	_, ok := e.store.PatchQuestion(tgt.id, func(q *forum.Question) { forum.ToggleQuestionReaction(q, kind) })
	return ok
}

func (e *Engine) currentReaction(tgt target) (forum.ReactionKind, bool) {
	if tgt.comment {
		c, ok := e.store.Comment(tgt.id)
		return c.UserReaction, ok
	}
	q, ok := e.store.Question(tgt.id)
	return q.UserReaction, ok
}

func toggled(current, kind forum.ReactionKind) forum.ReactionKind {
	if current == kind {
		return forum.ReactionNone
	}
	return kind
}

func (e *Engine) requireViewer() (api.Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authenticated {
		return api.Identity{}, validationError(CodeNotAuthenticated, "must log in first")
	}
	return e.viewer, nil
}

func (e *Engine) acquire(tgt target) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, pending := e.busy[tgt]; pending {
		return validationError(CodeBusy, fmt.Sprintf("another change for %d is still pending", tgt.id))
	}
	e.busy[tgt] = struct{}{}
	return nil
}

func (e *Engine) release(tgt target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.busy, tgt)
}

func (e *Engine) nextTempID() int64 {
	// Temporary ids are negative so they can never collide with
	// server-assigned ones.
	return -e.tempID.Add(1)
}
