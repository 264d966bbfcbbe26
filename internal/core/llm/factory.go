package llm

import (
	"context"
	"fmt"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/pkg/bedrock"
)

// New builds the configured chat client behind a circuit breaker.
func New(ctx context.Context) (ChatClient, error) {
	var inner ChatClient
	switch config.Cfg.Provider.Chat {
	case config.ProviderOpenAI:
		c, err := NewOpenAIChat(config.Cfg.OpenAI.Key, config.Cfg.OpenAI.BaseURL, config.Cfg.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		inner = c
	case config.ProviderBedrock:
		cli, err := bedrock.GetClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%v: bedrock client: %w", config.ModuleLLM, err)
		}
		inner = NewBedrockChat(cli, config.Cfg.Bedrock.ChatModel)
	default:
		return nil, fmt.Errorf("%v: unknown provider %q", config.ModuleLLM, config.Cfg.Provider.Chat)
	}
	openFor := time.Duration(config.Cfg.Breaker.OpenSeconds) * time.Second
	return NewBreakerChat(inner, string(config.Cfg.Provider.Chat), config.Cfg.Breaker.MaxFailures, openFor), nil
}
