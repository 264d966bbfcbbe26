package generator

import (
	"context"
	"fmt"

	"jlpt-listening/internal/core/llm"
	"jlpt-listening/internal/core/question"
)

// Structure asks the model to pull listening questions out of a raw
// transcript and parses the "---" separated blocks it returns. The questions
// carry no options.
func Structure(ctx context.Context, chat llm.ChatClient, transcript string, params llm.Params) ([]question.Question, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: structureSystem},
		{Role: llm.RoleUser, Content: structurePrompt(transcript)},
	}
	raw, err := chat.Complete(ctx, messages, params)
	if err != nil {
		return nil, fmt.Errorf("structure transcript: %w", err)
	}
	return SplitBlocks(raw), nil
}
