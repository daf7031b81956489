// Package replica holds the client's best-known state of the shared
// classroom entities. It is the single source of truth for rendering.
//
// All operations are synchronous in-memory mutations. Replace operations are
// authoritative poll results and supersede any optimistic patch that is not
// re-applied afterward. Removed ids are tombstoned so a late response for a
// deleted entity cannot resurrect it; a replace clears the tombstones because
// the fresh server list is ground truth.
package replica

import (
	"sync"

	"lectern/client/internal/forum"
)

type entityKind int

const (
	kindQuestion entityKind = iota
	kindComment
)

type entityKey struct {
	kind entityKind
	id   int64
}

type Store struct {
	mu            sync.Mutex
	questions     map[int64]forum.Question
	questionOrder []int64
	comments      map[int64]forum.Comment
	commentOrder  []int64
	messages      map[string][]forum.ChatMessage
	removed       map[entityKey]struct{}
}

func NewStore() *Store {
	return &Store{
		questions: make(map[int64]forum.Question),
		comments:  make(map[int64]forum.Comment),
		messages:  make(map[string][]forum.ChatMessage),
		removed:   make(map[entityKey]struct{}),
	}
}

// Clear drops all replica state. Used on identity change: viewer-scoped
// projections (user_reaction) must never survive a different viewer.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = make(map[int64]forum.Question)
	s.questionOrder = nil
	s.comments = make(map[int64]forum.Comment)
	s.commentOrder = nil
	s.messages = make(map[string][]forum.ChatMessage)
	s.removed = make(map[entityKey]struct{})
}

// QuestionSnapshot records the exact pre-image a mutation touched so a failed
// call can revert it, rather than re-fetching and hoping.
type QuestionSnapshot struct {
	id         int64
	question   forum.Question
	present    bool
	orderIndex int
}

// CommentSnapshot is the comment mirror of QuestionSnapshot.
type CommentSnapshot struct {
	id         int64
	comment    forum.Comment
	present    bool
	orderIndex int
}

// ReplaceQuestions overwrites the question replica wholesale with an
// authoritative server list.
func (s *Store) ReplaceQuestions(list []forum.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = make(map[int64]forum.Question, len(list))
	s.questionOrder = s.questionOrder[:0]
	for _, q := range list {
		s.questions[q.ID] = q.Clone()
		s.questionOrder = append(s.questionOrder, q.ID)
	}
	s.clearTombstones(kindQuestion)
}

// InsertQuestion appends an entity that is not yet in the replica, such as an
// optimistic create or a canonical create response.
func (s *Store) InsertQuestion(q forum.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[q.ID]; !exists {
		s.questionOrder = append(s.questionOrder, q.ID)
	}
	s.questions[q.ID] = q.Clone()
}

// SetQuestion applies a canonical server-returned entity. The canonical value
// wins over any optimistic guess. Returns false when the id was removed
// locally; the patch is then silently dropped per the tombstone contract.
func (s *Store) SetQuestion(q forum.Question) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRemoved(kindQuestion, q.ID) {
		return false
	}
	if _, exists := s.questions[q.ID]; !exists {
		s.questionOrder = append(s.questionOrder, q.ID)
	}
	s.questions[q.ID] = q.Clone()
	return true
}

// PatchQuestion applies an optimistic partial update and returns the
// pre-image for rollback. Returns false if the entity is absent or removed.
func (s *Store) PatchQuestion(id int64, patch func(*forum.Question)) (QuestionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRemoved(kindQuestion, id) {
		return QuestionSnapshot{}, false
	}
	current, ok := s.questions[id]
	if !ok {
		return QuestionSnapshot{}, false
	}
	snap := QuestionSnapshot{id: id, question: current.Clone(), present: true, orderIndex: indexOf(s.questionOrder, id)}
	updated := current.Clone()
	patch(&updated)
	updated.ID = id
	s.questions[id] = updated
	return snap, true
}

// RemoveQuestion deletes the entity and tombstones its id so later patches
// targeting it become inert.
func (s *Store) RemoveQuestion(id int64) (QuestionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.questions[id]
	if !ok {
		return QuestionSnapshot{}, false
	}
	snap := QuestionSnapshot{id: id, question: current.Clone(), present: true, orderIndex: indexOf(s.questionOrder, id)}
	delete(s.questions, id)
	s.questionOrder = removeID(s.questionOrder, id)
	s.removed[entityKey{kindQuestion, id}] = struct{}{}
	return snap, true
}

// DiscardQuestion removes an optimistic placeholder without tombstoning it,
// for reconciling a temporary id against the canonical created entity.
func (s *Store) DiscardQuestion(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, id)
	s.questionOrder = removeID(s.questionOrder, id)
}

// RestoreQuestion reverts the entity to a recorded pre-image.
func (s *Store) RestoreQuestion(snap QuestionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !snap.present {
		delete(s.questions, snap.id)
		s.questionOrder = removeID(s.questionOrder, snap.id)
		return
	}
	delete(s.removed, entityKey{kindQuestion, snap.id})
	if _, exists := s.questions[snap.id]; !exists {
		s.questionOrder = insertID(s.questionOrder, snap.id, snap.orderIndex)
	}
	s.questions[snap.id] = snap.question.Clone()
}

func (s *Store) Question(id int64) (forum.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return forum.Question{}, false
	}
	return q.Clone(), true
}

func (s *Store) Questions() []forum.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]forum.Question, 0, len(s.questionOrder))
	for _, id := range s.questionOrder {
		if q, ok := s.questions[id]; ok {
			out = append(out, q.Clone())
		}
	}
	return out
}

// ReplaceComments overwrites the comment replica for one thread view.
func (s *Store) ReplaceComments(list []forum.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = make(map[int64]forum.Comment, len(list))
	s.commentOrder = s.commentOrder[:0]
	for _, c := range list {
		s.comments[c.ID] = c.Clone()
		s.commentOrder = append(s.commentOrder, c.ID)
	}
	s.clearTombstones(kindComment)
}

func (s *Store) InsertComment(c forum.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.comments[c.ID]; !exists {
		s.commentOrder = append(s.commentOrder, c.ID)
	}
	s.comments[c.ID] = c.Clone()
}

func (s *Store) SetComment(c forum.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRemoved(kindComment, c.ID) {
		return false
	}
	if _, exists := s.comments[c.ID]; !exists {
		s.commentOrder = append(s.commentOrder, c.ID)
	}
	s.comments[c.ID] = c.Clone()
	return true
}

func (s *Store) PatchComment(id int64, patch func(*forum.Comment)) (CommentSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRemoved(kindComment, id) {
		return CommentSnapshot{}, false
	}
	current, ok := s.comments[id]
	if !ok {
		return CommentSnapshot{}, false
	}
	snap := CommentSnapshot{id: id, comment: current.Clone(), present: true, orderIndex: indexOf(s.commentOrder, id)}
	updated := current.Clone()
	patch(&updated)
	updated.ID = id
	s.comments[id] = updated
	return snap, true
}

func (s *Store) RemoveComment(id int64) (CommentSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.comments[id]
	if !ok {
		return CommentSnapshot{}, false
	}
	snap := CommentSnapshot{id: id, comment: current.Clone(), present: true, orderIndex: indexOf(s.commentOrder, id)}
	delete(s.comments, id)
	s.commentOrder = removeID(s.commentOrder, id)
	s.removed[entityKey{kindComment, id}] = struct{}{}
	return snap, true
}

// DiscardComment is the comment mirror of DiscardQuestion.
func (s *Store) DiscardComment(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.comments, id)
	s.commentOrder = removeID(s.commentOrder, id)
}

func (s *Store) RestoreComment(snap CommentSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !snap.present {
		delete(s.comments, snap.id)
		s.commentOrder = removeID(s.commentOrder, snap.id)
		return
	}
	delete(s.removed, entityKey{kindComment, snap.id})
	if _, exists := s.comments[snap.id]; !exists {
		s.commentOrder = insertID(s.commentOrder, snap.id, snap.orderIndex)
	}
	s.comments[snap.id] = snap.comment.Clone()
}

func (s *Store) Comment(id int64) (forum.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return forum.Comment{}, false
	}
	return c.Clone(), true
}

func (s *Store) Comments(questionID int64) []forum.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []forum.Comment
	for _, id := range s.commentOrder {
		if c, ok := s.comments[id]; ok && c.QuestionID == questionID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// ReplaceMessages installs a fetched transcript. Message order is the
// server's sequence order, not client timestamps.
func (s *Store) ReplaceMessages(sessionID string, list []forum.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append([]forum.ChatMessage(nil), list...)
}

// AppendMessage adds an entry to a transcript's locally-optimistic tail (or a
// confirmed model reply). Transcripts are append-only.
func (s *Store) AppendMessage(sessionID string, msg forum.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], msg)
}

// ConfirmMessage marks a pending tail entry as confirmed by the server.
func (s *Store) ConfirmMessage(sessionID, localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[sessionID]
	for i := range list {
		if list[i].LocalID == localID {
			list[i].Pending = false
			return
		}
	}
}

// DropMessage removes a pending tail entry after a failed send.
func (s *Store) DropMessage(sessionID, localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[sessionID]
	for i := range list {
		if list[i].LocalID == localID {
			s.messages[sessionID] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (s *Store) Messages(sessionID string) []forum.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forum.ChatMessage(nil), s.messages[sessionID]...)
}

func (s *Store) isRemoved(kind entityKind, id int64) bool {
	_, removed := s.removed[entityKey{kind, id}]
	return removed
}

func (s *Store) clearTombstones(kind entityKind) {
	for key := range s.removed {
		if key.kind == kind {
			delete(s.removed, key)
		}
	}
}

func indexOf(order []int64, id int64) int {
	for i, existing := range order {
		if existing == id {
			return i
		}
	}
	return len(order)
}

func removeID(order []int64, id int64) []int64 {
	for i, existing := range order {
		if existing == id {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

func insertID(order []int64, id int64, at int) []int64 {
	if at < 0 || at > len(order) {
		at = len(order)
	}
	order = append(order, 0)
	copy(order[at+1:], order[at:])
	order[at] = id
	return order
}
