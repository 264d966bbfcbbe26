package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChat_SendsParamsAndTrims(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"  よくできました  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIChat("k", srv.URL+"/", "gpt-4o-mini")
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), UserPrompt("採点して"), Params{Temperature: 0.7, TopP: 0.9, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "よくできました", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.9, got.TopP, 1e-6)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestOpenAIChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIChat("k", srv.URL+"/", "m")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), UserPrompt("x"), Params{})
	assert.ErrorIs(t, err, ErrNoChoices)
}

type fakeConverser struct {
	in  *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
	err error
}

func (f *fakeConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestBedrockChat_MapsRolesAndInference(t *testing.T) {
	fc := &fakeConverser{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role: types.ConversationRoleAssistant,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: "{\"introduction\":"},
				&types.ContentBlockMemberText{Value: "\"x\"}"},
			},
		}},
	}}
	c := NewBedrockChat(fc, "amazon.nova-micro-v1:0")

	out, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	}, Params{Temperature: 0.7, TopP: 0.9, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, `{"introduction":"x"}`, out)

	require.Len(t, fc.in.System, 1)
	require.Len(t, fc.in.Messages, 1)
	assert.Equal(t, types.ConversationRoleUser, fc.in.Messages[0].Role)
	assert.Equal(t, int32(500), *fc.in.InferenceConfig.MaxTokens)
	assert.Equal(t, float32(0.9), *fc.in.InferenceConfig.TopP)
}

func TestBedrockChat_TransportError(t *testing.T) {
	c := NewBedrockChat(&fakeConverser{err: errors.New("unreachable")}, "m")
	_, err := c.Complete(context.Background(), UserPrompt("x"), Params{})
	assert.ErrorContains(t, err, "unreachable")
}

type flakyChat struct{ calls int }

func (f *flakyChat) Complete(context.Context, []Message, Params) (string, error) {
	f.calls++
	return "", errors.New("down")
}

func TestBreakerChat_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyChat{}
	c := NewBreakerChat(inner, "test", 2, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := c.Complete(context.Background(), nil, Params{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.Complete(context.Background(), nil, Params{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}
