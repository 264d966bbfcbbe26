package question

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sections partitioning the corpus.
const (
	SectionOne   = 1
	SectionTwo   = 2
	SectionThree = 3
)

var Sections = []int{SectionOne, SectionTwo, SectionThree}

// TimestampLayout is ISO-8601 with microseconds and no zone.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var (
	ErrInvalidAnswerIndex = errors.New("correct_answer is not a valid option index")
	ErrMissingText        = errors.New("introduction, conversation and question are required")
	ErrOptionCount        = errors.New("a question with options must have exactly 4")
)

// OptionCount is the number of answer choices in a listening question.
const OptionCount = 4

// Question is one listening practice item. Options and CorrectAnswer are
// either both set or both nil.
type Question struct {
	Introduction  string   `json:"introduction"`
	Conversation  string   `json:"conversation"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Topic         string   `json:"topic,omitempty"`
	Section       int      `json:"section,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
}

func IsValidSection(section int) bool {
	return section >= SectionOne && section <= SectionThree
}

// Validate checks the text fields, the option count and the
// options/correct_answer pairing.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Introduction) == "" ||
		strings.TrimSpace(q.Conversation) == "" ||
		strings.TrimSpace(q.Question) == "" {
		return ErrMissingText
	}
	if q.Options == nil {
		return nil
	}
	if len(q.Options) != OptionCount {
		return ErrOptionCount
	}
	if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
		return ErrInvalidAnswerIndex
	}
	return nil
}

// CompositeText is the unit of embedding.
func (q Question) CompositeText() string {
	return fmt.Sprintf("Introduction: %s Conversation: %s Question: %s",
		q.Introduction, q.Conversation, q.Question)
}

// CorrectOption returns the text of the correct option, if any.
func (q Question) CorrectOption() (string, bool) {
	if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
		return "", false
	}
	return q.Options[*q.CorrectAnswer], true
}

// OptionForAnswer resolves a 1-based user answer ("1".."4") to its option text.
func (q Question) OptionForAnswer(userAnswer string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(userAnswer))
	if err != nil {
		return "", fmt.Errorf("answer %q: %w", userAnswer, ErrInvalidAnswerIndex)
	}
	if n < 1 || n > len(q.Options) {
		return "", fmt.Errorf("answer %d out of range 1..%d: %w", n, len(q.Options), ErrInvalidAnswerIndex)
	}
	return q.Options[n-1], nil
}

// IntPtr is a helper for building questions with a correct answer.
func IntPtr(v int) *int {
	return &v
}
