package forum

// ToggleReaction applies the single-active-choice transition to a count map
// from the viewer's perspective and returns the viewer's new active kind.
//
// Toggling the held kind releases it; toggling a different kind moves the
// viewer's single slot (decrement old, increment new). The server computes
// the same transition independently and its answer is authoritative.
func ToggleReaction(counts map[ReactionKind]int, current, kind ReactionKind) ReactionKind {
	if current == kind {
		decrementReaction(counts, kind)
		return ReactionNone
	}
	if current != ReactionNone {
		decrementReaction(counts, current)
	}
	if counts != nil {
		counts[kind]++
	}
	return kind
}

// ToggleQuestionReaction applies ToggleReaction in place on a question,
// allocating the count map if the server sent none.
func ToggleQuestionReaction(q *Question, kind ReactionKind) {
	if q.Reactions == nil {
		q.Reactions = make(map[ReactionKind]int)
	}
	q.UserReaction = ToggleReaction(q.Reactions, q.UserReaction, kind)
}

// ToggleCommentReaction is the comment mirror of ToggleQuestionReaction.
func ToggleCommentReaction(c *Comment, kind ReactionKind) {
	if c.Reactions == nil {
		c.Reactions = make(map[ReactionKind]int)
	}
	c.UserReaction = ToggleReaction(c.Reactions, c.UserReaction, kind)
}

func decrementReaction(counts map[ReactionKind]int, kind ReactionKind) {
	if counts == nil {
		return
	}
	if counts[kind] <= 1 {
		delete(counts, kind)
		return
	}
	counts[kind]--
}
