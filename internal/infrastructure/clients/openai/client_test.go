package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
)

var _ providers.CompletionProvider = (*Client)(nil)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	client.SetBaseURL(server.URL)
	return client, server
}

func chatResponse(content string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func TestComplete_ReturnsOutputText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write(chatResponse("hello there"))
	})

	out, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestComplete_StripsCodeFences(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatResponse("```json\n{\"zip\":\"10001\"}\n```"))
	})

	out, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"zip":"10001"}`, out)
}

func TestComplete_ServerErrorIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "system", "user")
	assert.ErrorIs(t, err, providers.ErrCompletionUnavailable)
}

func TestComplete_EmptyChoicesIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), "system", "user")
	assert.ErrorIs(t, err, providers.ErrCompletionUnavailable)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)
}

func TestStripMarkdownFences(t *testing.T) {
	assert.Equal(t, "plain", StripMarkdownFences("plain"))
	assert.Equal(t, "x", StripMarkdownFences("```\nx\n```"))
	assert.Equal(t, "select 1", StripMarkdownFences("```sql\nselect 1\n```"))
}
