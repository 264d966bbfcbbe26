package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestCachedEmbedder_HitsInnerOncePerText(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	v1, err := e.Embed(context.Background(), "学校")
	require.NoError(t, err)
	v1[0] = 99 // caller mutation must not leak into the cache

	v2, err := e.Embed(context.Background(), "学校")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, float32(6), v2[0])

	_, err = e.Embed(context.Background(), "駅")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, e.Len())
}

func TestCachedEmbedder_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	e, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "a")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, e.Len())
}

type fakeInvoker struct {
	body  []byte
	model string
	out   []byte
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.body = in.Body
	f.model = *in.ModelId
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.out}, nil
}

func TestBedrockEmbedder_SendsInputText(t *testing.T) {
	inv := &fakeInvoker{out: []byte(`{"embedding":[0.5,-0.25,1]}`)}
	e := NewBedrockEmbedder(inv, "amazon.titan-embed-text-v1")

	vec, err := e.Embed(context.Background(), "こんにちは")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.Equal(t, "amazon.titan-embed-text-v1", inv.model)

	var req map[string]string
	require.NoError(t, json.Unmarshal(inv.body, &req))
	assert.Equal(t, "こんにちは", req["inputText"])
}

func TestBedrockEmbedder_Errors(t *testing.T) {
	e := NewBedrockEmbedder(&fakeInvoker{}, "m")
	_, err := e.Embed(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyText)

	e = NewBedrockEmbedder(&fakeInvoker{out: []byte(`{"embedding":[]}`)}, "m")
	_, err = e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoEmbedding)

	e = NewBedrockEmbedder(&fakeInvoker{err: errors.New("throttled")}, "m")
	_, err = e.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "throttled")
}

func TestOpenAIEmbedder_PostsToEmbeddings(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var req openAIEmbeddingRequest
		_ = json.Unmarshal(raw, &req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("test-key", srv.URL+"/", "text-embedding-3-small")
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "text-embedding-3-small", gotModel)
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "", "m")
	assert.Error(t, err)
}
