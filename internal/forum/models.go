// Package forum defines the client-side shapes of the shared classroom
// entities. The server owns the canonical values; these structs are the
// replica's view of them.
package forum

import "time"

// ReactionKind is one of the fixed reaction choices a viewer may hold
// active on a question or comment.
type ReactionKind string

const (
	ReactionNone       ReactionKind = ""
	ReactionLike       ReactionKind = "like"
	ReactionInsightful ReactionKind = "insightful"
	ReactionCurious    ReactionKind = "curious"
	ReactionFunny      ReactionKind = "funny"
)

var allowedReactionKinds = map[ReactionKind]struct{}{
	ReactionLike:       {},
	ReactionInsightful: {},
	ReactionCurious:    {},
	ReactionFunny:      {},
}

// ValidReaction reports whether kind is one of the defined reaction choices.
// ReactionNone is not a valid choice to send.
func ValidReaction(kind ReactionKind) bool {
	_, ok := allowedReactionKinds[kind]
	return ok
}

// ReactionKinds lists the defined kinds in display order.
func ReactionKinds() []ReactionKind {
	return []ReactionKind{ReactionLike, ReactionInsightful, ReactionCurious, ReactionFunny}
}

type Question struct {
	ID           int64                `json:"id"`
	Author       string               `json:"author"`
	Content      string               `json:"content"`
	Tags         []string             `json:"tags"`
	Resolved     bool                 `json:"resolved"`
	Reactions    map[ReactionKind]int `json:"reactions"`
	UserReaction ReactionKind         `json:"user_reaction"`
	CommentCount int                  `json:"comment_count"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Clone returns a deep copy so replica snapshots never alias caller state.
func (q Question) Clone() Question {
	out := q
	out.Tags = append([]string(nil), q.Tags...)
	out.Reactions = cloneReactions(q.Reactions)
	return out
}

type Comment struct {
	ID           int64                `json:"id"`
	QuestionID   int64                `json:"question_id"`
	Author       string               `json:"author"`
	Content      string               `json:"content"`
	Reactions    map[ReactionKind]int `json:"reactions"`
	UserReaction ReactionKind         `json:"user_reaction"`
	CreatedAt    time.Time            `json:"created_at"`
}

func (c Comment) Clone() Comment {
	out := c
	out.Reactions = cloneReactions(c.Reactions)
	return out
}

// Chat roles. The transcript contract admits exactly these two.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one entry of a session transcript. LocalID and Pending are
// client-only bookkeeping for the optimistic tail and never cross the wire.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	LocalID string `json:"-"`
	Pending bool   `json:"-"`
}

func cloneReactions(in map[ReactionKind]int) map[ReactionKind]int {
	if in == nil {
		return nil
	}
	out := make(map[ReactionKind]int, len(in))
	for kind, count := range in {
		out[kind] = count
	}
	return out
}
