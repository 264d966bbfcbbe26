package embedding

import (
	"context"
	"fmt"

	"jlpt-listening/config"
	"jlpt-listening/pkg/bedrock"
)

// New builds the configured embedder wrapped in the LRU cache.
func New(ctx context.Context) (Embedder, error) {
	var inner Embedder
	switch config.Cfg.Provider.Embedding {
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(config.Cfg.OpenAI.Key, config.Cfg.OpenAI.BaseURL, config.Cfg.OpenAI.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		inner = e
	case config.ProviderBedrock:
		cli, err := bedrock.GetClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%v: bedrock client: %w", config.ModuleEmbedding, err)
		}
		inner = NewBedrockEmbedder(cli, config.Cfg.Bedrock.EmbeddingModel)
	default:
		return nil, fmt.Errorf("%v: unknown provider %q", config.ModuleEmbedding, config.Cfg.Provider.Embedding)
	}
	return NewCachedEmbedder(inner, config.Cfg.Cache.EmbeddingSize)
}
