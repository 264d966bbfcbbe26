package llm

import (
	"context"
	"fmt"
	"strings"

	"jlpt-listening/config"
	"jlpt-listening/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// Converser is the subset of the Bedrock runtime client used for chat.
type Converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockChat talks to the Converse API. System messages are sent as system
// content blocks, everything else as conversation turns.
type BedrockChat struct {
	client  Converser
	modelID string
}

func NewBedrockChat(client Converser, modelID string) *BedrockChat {
	return &BedrockChat{client: client, modelID: modelID}
}

func (c *BedrockChat) Complete(ctx context.Context, messages []Message, params Params) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(params.Temperature),
			TopP:        aws.Float32(params.TopP),
			MaxTokens:   aws.Int32(int32(params.MaxTokens)),
		},
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})
		case RoleAssistant:
			input.Messages = append(input.Messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		default:
			input.Messages = append(input.Messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	out, err := c.client.Converse(ctx, input)
	if err != nil {
		logger.Error(err, "%v: bedrock converse failed (model=%s)", config.ModuleLLM, c.modelID)
		return "", fmt.Errorf("converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", ErrNoChoices
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	if b.Len() == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(b.String()), nil
}
