package question

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Question {
	return Question{
		Introduction:  "駅のアナウンスを聞いてください。",
		Conversation:  "まもなく三番線に電車が参ります。",
		Question:      "電車は何番線に来ますか。",
		Options:       []string{"一番線", "二番線", "三番線", "四番線"},
		CorrectAnswer: IntPtr(2),
	}
}

func TestValidate(t *testing.T) {
	q := sample()
	require.NoError(t, q.Validate())

	q.CorrectAnswer = IntPtr(4)
	assert.ErrorIs(t, q.Validate(), ErrInvalidAnswerIndex)

	q.CorrectAnswer = nil
	assert.ErrorIs(t, q.Validate(), ErrInvalidAnswerIndex)

	q.CorrectAnswer = IntPtr(1)
	q.Options = []string{"一番線", "二番線"}
	assert.ErrorIs(t, q.Validate(), ErrOptionCount)

	q.Options = nil
	assert.NoError(t, q.Validate())

	q.Conversation = "  "
	assert.ErrorIs(t, q.Validate(), ErrMissingText)
}

func TestOptionForAnswer_AllIndicesInBounds(t *testing.T) {
	q := sample()
	for i, ans := range []string{"1", "2", "3", "4"} {
		got, err := q.OptionForAnswer(ans)
		require.NoError(t, err)
		assert.Equal(t, q.Options[i], got)
	}

	for _, bad := range []string{"0", "5", "x", ""} {
		_, err := q.OptionForAnswer(bad)
		assert.ErrorIs(t, err, ErrInvalidAnswerIndex, bad)
	}
}

func TestCorrectOption(t *testing.T) {
	got, ok := sample().CorrectOption()
	require.True(t, ok)
	assert.Equal(t, "三番線", got)

	_, ok = Question{Introduction: "a"}.CorrectOption()
	assert.False(t, ok)
}

func TestJSON_OmitsAbsentOptions(t *testing.T) {
	q := sample()
	q.Options, q.CorrectAnswer = nil, nil

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "options")
	assert.NotContains(t, string(raw), "correct_answer")

	var back Question
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, q, back)
}

func TestCompositeText(t *testing.T) {
	q := Question{Introduction: "i", Conversation: "c", Question: "q"}
	assert.Equal(t, "Introduction: i Conversation: c Question: q", q.CompositeText())
}
