package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/llm"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "ELEMENT: B\nACTION: CLICK\nVALUE: None"}
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 12, "total_tokens": 132}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNewProvider_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	assert.Error(t, err)
}

func TestNewProvider_Defaults(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	p, err := NewProvider("sk-test")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())

	p, err = NewProvider("sk-test", WithModel("gpt-4o-mini"), WithBaseURL("http://localhost:8080/v1"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.GetModel())
	assert.Equal(t, "http://localhost:8080/v1", p.GetBaseURL())
}

func TestComplete(t *testing.T) {
	var request struct {
		Model    string            `json:"model"`
		Messages []json.RawMessage `json:"messages"`
	}
	var auth string

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &request))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	p, err := NewProvider("sk-test", WithBaseURL(server.URL+"/v1"), WithModel("gpt-4o"), WithMaxRetries(0))
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), []*llm.Message{
		llm.NewSystemMessage("system"),
		{Role: llm.RoleUser, Content: "what next?", Image: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, reply.Role)
	assert.Equal(t, "ELEMENT: B\nACTION: CLICK\nVALUE: None", reply.Content)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o", request.Model)
	require.Len(t, request.Messages, 2)
	assert.Contains(t, string(request.Messages[1]), "data:image/png;base64,")
}

func TestComplete_APIError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)
	})

	p, err := NewProvider("sk-bad", WithBaseURL(server.URL+"/v1"), WithMaxRetries(0))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*llm.Message{llm.NewUserMessage("hi")})
	assert.Error(t, err)
}

func TestComplete_NoMessages(t *testing.T) {
	p, err := NewProvider("sk-test")
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), nil)
	assert.Error(t, err)
}
