package exercisegen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	item := GeneratedItem{
		Kind:           KindMultipleChoice,
		Prompt:         "Which of these are gas giants?",
		Options:        []string{"Mars", "Jupiter", "Saturn", "Venus"},
		CorrectIndices: []int{1, 2},
		Pairs:          []MatchPair{{Left: "a", Right: "b"}},
		Blanks:         []string{"x"},
	}

	clone := item.Clone()
	clone.Options[0] = "changed"
	clone.CorrectIndices[0] = 9
	clone.Pairs[0].Left = "changed"
	clone.Blanks[0] = "changed"

	assert.Equal(t, "Mars", item.Options[0])
	assert.Equal(t, 1, item.CorrectIndices[0])
	assert.Equal(t, "a", item.Pairs[0].Left)
	assert.Equal(t, "x", item.Blanks[0])
}

func TestValidateItem(t *testing.T) {
	valid := []GeneratedItem{
		{Kind: KindSingleChoice, Prompt: "p", Options: []string{"a", "b"}, CorrectIndex: 1},
		{Kind: KindMultipleChoice, Prompt: "p", Options: []string{"a", "b", "c"}, CorrectIndices: []int{0, 2}},
		{Kind: KindOpenQuestion, Prompt: "p", SampleAnswer: "because"},
		{Kind: KindMatching, Prompt: "p", Pairs: []MatchPair{{Left: "a", Right: "1"}, {Left: "b", Right: "2"}}},
		{Kind: KindFillInBlank, Prompt: "the ___ cycle", Blanks: []string{"water"}},
	}
	for _, item := range valid {
		assert.NoError(t, validateItem(item), "kind %s", item.Kind)
	}

	invalid := []GeneratedItem{
		{Kind: KindSingleChoice, Prompt: "", Options: []string{"a", "b"}},
		{Kind: KindSingleChoice, Prompt: "p", Options: []string{"a", "b"}, CorrectIndex: 5},
		{Kind: KindMultipleChoice, Prompt: "p", Options: []string{"a", "b"}},
		{Kind: KindOpenQuestion, Prompt: "p"},
		{Kind: KindMatching, Prompt: "p", Pairs: []MatchPair{{Left: "a", Right: "1"}}},
		{Kind: KindFillInBlank, Prompt: "p"},
		{Kind: "essay", Prompt: "p"},
	}
	for _, item := range invalid {
		assert.Error(t, validateItem(item), "kind %s", item.Kind)
	}
}

func TestGeneratedItemKeepsZeroCorrectIndex(t *testing.T) {
	item := GeneratedItem{
		Kind:         KindSingleChoice,
		Prompt:       "p",
		Options:      []string{"a", "b"},
		CorrectIndex: 0,
	}

	encoded, err := json.Marshal(item)
	require.NoError(t, err)

	// option 0 as the marked answer must survive serialization, the fixer
	// prompt embeds items this way
	assert.Contains(t, string(encoded), `"correct_index":0`)
}

func TestJudgeResultTally(t *testing.T) {
	jr := JudgeResult{Verdicts: []ItemVerdict{
		errorVerdict(0, CodeWrongAnswer),
		warningVerdict(1, CodeDifficultyMismatch),
		errorVerdict(2, CodeOffTopic),
		{ItemIndex: 3, Status: StatusOK},
	}}
	jr.tally()

	assert.Equal(t, 2, jr.TotalErrors)
	assert.Equal(t, 1, jr.TotalWarnings)

	// derived, never hand-maintained: re-tally after mutation
	jr.Verdicts = jr.Verdicts[:1]
	jr.tally()
	assert.Equal(t, 1, jr.TotalErrors)
	assert.Equal(t, 0, jr.TotalWarnings)
}
