package forum

import (
	"reflect"
	"testing"
)

func TestParseTags(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"comma split with spaces", "js, beginner", []string{"js", "beginner"}},
		{"empties dropped", "js,, ,beginner,", []string{"js", "beginner"}},
		{"hash prefix stripped", "#js, #beginner", []string{"js", "beginner"}},
		{"duplicates removed", "js, beginner, js", []string{"js", "beginner"}},
		{"all empty", " , ,", nil},
		{"single", "golang", []string{"golang"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTags(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTags(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestDisplayTag(t *testing.T) {
	if got := DisplayTag("js"); got != "#js" {
		t.Fatalf("DisplayTag = %q, want #js", got)
	}
}

func TestQuestionCloneIsDeep(t *testing.T) {
	q := Question{
		ID:        7,
		Tags:      []string{"js"},
		Reactions: map[ReactionKind]int{ReactionLike: 1},
	}
	clone := q.Clone()
	clone.Tags[0] = "rust"
	clone.Reactions[ReactionLike] = 99

	if q.Tags[0] != "js" {
		t.Fatalf("clone shares tags slice: %v", q.Tags)
	}
	if q.Reactions[ReactionLike] != 1 {
		t.Fatalf("clone shares reactions map: %v", q.Reactions)
	}
}
