package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_ExtractsObjectFromProse(t *testing.T) {
	raw := "Here is your question:\n```json\n" + `{
  "introduction": "駅で男の人が話しています。",
  "conversation": "男：すみません、この電車は空港へ行きますか。",
  "question": "男の人はどこへ行きたいですか。",
  "options": ["空港", "駅", "ホテル", "会社"],
  "correct_answer": "0"
}` + "\n```\nGood luck!"

	q, ok := ParseJSON(raw)
	require.True(t, ok)
	assert.Equal(t, "駅で男の人が話しています。", q.Introduction)
	assert.Len(t, q.Options, 4)
	require.NotNil(t, q.CorrectAnswer)
	assert.Equal(t, 0, *q.CorrectAnswer)
}

func TestParseJSON_Rejects(t *testing.T) {
	cases := map[string]string{
		"no braces":       "introduction: x",
		"missing options": `{"introduction":"a","conversation":"b","question":"c","correct_answer":1}`,
		"bad answer":      `{"introduction":"a","conversation":"b","question":"c","options":["x","y"],"correct_answer":"two"}`,
		"out of range":    `{"introduction":"a","conversation":"b","question":"c","options":["w","x","y","z"],"correct_answer":4}`,
		"two options":     `{"introduction":"a","conversation":"b","question":"c","options":["x","y"],"correct_answer":1}`,
		"empty text":      `{"introduction":"","conversation":"b","question":"c","options":["x"],"correct_answer":0}`,
		"broken json":     `{"introduction": "a",`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseJSON(raw)
			assert.False(t, ok)
		})
	}
}

func TestParseLines_PrefixesAndContinuations(t *testing.T) {
	raw := `Sure.
- **Introduction:** 女の人と男の人が話しています。
Conversation: 女：明日の会議は何時からですか。
男：十時からです。
QUESTION: 会議は何時からですか。`

	q, ok := ParseLines(raw)
	require.True(t, ok)
	assert.Equal(t, "女の人と男の人が話しています。", q.Introduction)
	assert.Equal(t, "女：明日の会議は何時からですか。\n男：十時からです。", q.Conversation)
	assert.Equal(t, "会議は何時からですか。", q.Question)
	assert.Nil(t, q.Options)
	assert.Nil(t, q.CorrectAnswer)
}

func TestParse_FallsThroughToPlaceholder(t *testing.T) {
	q, p := parse(DefaultParsers, "the model said nothing useful")
	assert.True(t, p.Degraded)
	assert.Equal(t, "placeholder", p.Name)
	assert.NotEmpty(t, q.Introduction)
	assert.NotEmpty(t, q.Conversation)
	assert.NotEmpty(t, q.Question)

	_, p = parse(DefaultParsers, "introduction: a\nconversation: b\nquestion: c")
	assert.Equal(t, "lines", p.Name)
}

func TestParse_EmptyStrategyListStillReturnsQuestion(t *testing.T) {
	q, p := parse(nil, "")
	assert.True(t, p.Degraded)
	assert.NotEmpty(t, q.Question)
}

func TestSplitBlocks(t *testing.T) {
	raw := `introduction: 一つ目
conversation: A
question: Q1
---
this block is noise
---
introduction: 二つ目
conversation: B
question: Q2`

	qs := SplitBlocks(raw)
	require.Len(t, qs, 2)
	assert.Equal(t, "一つ目", qs[0].Introduction)
	assert.Equal(t, "Q2", qs[1].Question)
}
