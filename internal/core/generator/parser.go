package generator

import (
	"encoding/json"
	"strconv"
	"strings"

	"jlpt-listening/internal/core/question"
)

// Parser turns raw model output into a question. Strategies are tried in
// order and the first success wins. A degraded result is usable for display
// but is never stored.
type Parser struct {
	Name     string
	Parse    func(raw string) (question.Question, bool)
	Degraded bool
}

var DefaultParsers = []Parser{
	{Name: "json", Parse: ParseJSON},
	{Name: "lines", Parse: ParseLines},
	{Name: "placeholder", Parse: placeholder, Degraded: true},
}

var requiredFields = []string{"introduction", "conversation", "question", "options", "correct_answer"}

// ParseJSON reads the span from the first '{' to the last '}' as a question
// object. All five fields must be present; correct_answer may be a number or
// a numeric string and must index into options.
func ParseJSON(raw string) (question.Question, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return question.Question{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return question.Question{}, false
	}
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			return question.Question{}, false
		}
	}

	var q question.Question
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"introduction", &q.Introduction},
		{"conversation", &q.Conversation},
		{"question", &q.Question},
	} {
		if err := json.Unmarshal(fields[f.key], f.dst); err != nil {
			return question.Question{}, false
		}
	}
	if err := json.Unmarshal(fields["options"], &q.Options); err != nil || q.Options == nil {
		return question.Question{}, false
	}
	answer, ok := coerceInt(fields["correct_answer"])
	if !ok {
		return question.Question{}, false
	}
	q.CorrectAnswer = &answer

	if err := q.Validate(); err != nil {
		return question.Question{}, false
	}
	return q, true
}

func coerceInt(raw json.RawMessage) (int, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil && f == float64(int(f)) {
			return int(f), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}

// ParseLines scans "introduction:", "conversation:" and "question:" prefixed
// lines (case-insensitive, markdown bullets and bold stripped). Lines without
// a prefix continue the current field. The result has no options.
func ParseLines(raw string) (question.Question, bool) {
	var q question.Question
	var current *string
	for _, line := range strings.Split(raw, "\n") {
		clean := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*#> "))
		clean = strings.ReplaceAll(clean, "**", "")
		lower := strings.ToLower(clean)

		matched := false
		for _, f := range []struct {
			prefix string
			dst    *string
		}{
			{"introduction:", &q.Introduction},
			{"conversation:", &q.Conversation},
			{"question:", &q.Question},
		} {
			if strings.HasPrefix(lower, f.prefix) {
				current = f.dst
				*current = strings.TrimSpace(clean[len(f.prefix):])
				matched = true
				break
			}
		}
		if matched || current == nil || clean == "" {
			continue
		}
		if *current == "" {
			*current = clean
		} else {
			*current += "\n" + clean
		}
	}
	if err := q.Validate(); err != nil {
		return question.Question{}, false
	}
	return q, true
}

func placeholder(string) (question.Question, bool) {
	return question.Question{
		Introduction: "問題を作成できませんでした。",
		Conversation: "申し訳ありませんが、会話を生成できませんでした。",
		Question:     "もう一度お試しください。",
	}, true
}

// parse runs the strategies in order. The last strategy is expected to
// always succeed.
func parse(parsers []Parser, raw string) (question.Question, Parser) {
	for _, p := range parsers {
		if q, ok := p.Parse(raw); ok {
			return q, p
		}
	}
	q, _ := placeholder(raw)
	return q, DefaultParsers[len(DefaultParsers)-1]
}

// SplitBlocks splits structured transcript output on "---" separators and
// parses each block with ParseLines, dropping blocks that do not parse.
func SplitBlocks(raw string) []question.Question {
	var out []question.Question
	for _, block := range strings.Split(raw, "---") {
		if q, ok := ParseLines(block); ok {
			out = append(out, q)
		}
	}
	return out
}
