package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jlpt-listening/config"
	"jlpt-listening/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// ModelInvoker is the subset of the Bedrock runtime client used for embeddings.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// BedrockEmbedder calls a Titan text embedding model.
type BedrockEmbedder struct {
	client  ModelInvoker
	modelID string
}

func NewBedrockEmbedder(client ModelInvoker, modelID string) *BedrockEmbedder {
	return &BedrockEmbedder{client: client, modelID: modelID}
}

func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		logger.Error(err, "%v: bedrock embedding failed (model=%s)", config.ModuleEmbedding, e.modelID)
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("parse titan response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	return resp.Embedding, nil
}
