package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jlpt-listening/config"
	"jlpt-listening/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var ErrNoChoices = errors.New("no choices returned")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the inference parameters shared by generation and feedback.
type Params struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultParams reads the generation section of the config.
func DefaultParams() Params {
	return Params{
		Temperature: config.Cfg.Generation.Temperature,
		TopP:        config.Cfg.Generation.TopP,
		MaxTokens:   config.Cfg.Generation.MaxTokens,
	}
}

// ChatClient sends role-tagged messages to a chat model and returns its text.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, params Params) (string, error)
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	TopP        float32   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
}
type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type OpenAIChat struct {
	client openai.Client
	model  string
}

func NewOpenAIChat(key, baseURL, model string) (*OpenAIChat, error) {
	if key == "" {
		return nil, errors.New("missing openai key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIChat{client: openai.NewClient(opts...), model: model}, nil
}

func (c *OpenAIChat) Complete(ctx context.Context, messages []Message, params Params) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}
	var out chatResponse
	if err := c.client.Post(ctx, "chat/completions", req, &out); err != nil {
		logger.Error(err, "%v: call llm failed", config.ModuleLLM)
		return "", err
	}
	if len(out.Choices) == 0 {
		logger.Error(ErrNoChoices, "%v: no choices returned", config.ModuleLLM)
		return "", ErrNoChoices
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// UserPrompt wraps a single prompt as the only user message.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}

func (p Params) String() string {
	return fmt.Sprintf("temperature=%.2f top_p=%.2f max_tokens=%d", p.Temperature, p.TopP, p.MaxTokens)
}
