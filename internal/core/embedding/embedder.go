package embedding

import (
	"context"
	"errors"
	"strings"

	"jlpt-listening/config"
	"jlpt-listening/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	ErrEmptyText   = errors.New("text is empty")
	ErrNoEmbedding = errors.New("no embedding returned")
)

// Embedder converts text to a fixed-length vector. Failures are returned as is;
// retrying is left to the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// NewOpenAIEmbedder uses the official SDK with automatic retries disabled.
func NewOpenAIEmbedder(key, baseURL, model string) (*OpenAIEmbedder, error) {
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
	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	reqBody := openAIEmbeddingRequest{Model: e.model, Input: []string{text}}
	var out openAIEmbeddingResponse
	if err := e.client.Post(ctx, "embeddings", reqBody, &out); err != nil {
		logger.WithFields(map[string]interface{}{
			"model": e.model,
			"error": err,
		}).Errorf("%v: openai embedding failed", config.ModuleEmbedding)
		return nil, err
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Message)
	}
	if len(out.Data) == 0 {
		return nil, ErrNoEmbedding
	}
	src := out.Data[0].Embedding
	vec := make([]float32, len(src))
	for k := range src {
		vec[k] = float32(src[k])
	}
	return vec, nil
}
