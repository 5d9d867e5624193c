package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docqa/internal/config"
	"github.com/knowledge-engine/docqa/internal/provider"
)

type MockTransport struct {
	Response *http.Response
	Err      error
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Response, m.Err
}

func TestOllamaGenerate(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"response": "Helsinki is the capital of Finland."}`))
	}))
	defer server.Close()

	p := provider.NewOllamaProvider(server.URL+"/api/generate", "llama2", server.Client())

	ans, err := p.Generate(context.Background(), "Capital of Finland?")
	require.NoError(t, err)
	assert.Equal(t, "Helsinki is the capital of Finland.", ans)
	assert.Equal(t, "llama2", received["model"])
	assert.Equal(t, "Capital of Finland?", received["prompt"])
	assert.Equal(t, false, received["stream"])
}

func TestOpenAIGenerate(t *testing.T) {
	mockResponse := `{
		"choices": [
			{
				"message": {
					"content": "Paris"
				}
			}
		]
	}`
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	p := provider.NewOpenAIProvider(server.URL+"/v1/chat/completions", "gpt-3.5-turbo", "sk-fake", server.Client())

	ans, err := p.Generate(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", ans)
	assert.Equal(t, "Bearer sk-fake", auth)
}

func TestOpenAIGenerate_NoChoices(t *testing.T) {
	client := &http.Client{Transport: &MockTransport{
		Response: &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(`{"choices": []}`)),
		},
	}}

	p := provider.NewOpenAIProvider("http://mock-openai/v1/chat/completions", "gpt-4", "", client)

	_, err := p.Generate(context.Background(), "anything")
	assert.Error(t, err)
}

func TestGenerate_NonOKStatus(t *testing.T) {
	client := &http.Client{Transport: &MockTransport{
		Response: &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader("model is loading")),
		},
	}}

	p := provider.NewOllamaProvider("http://mock-ollama/api/generate", "mistral", client)

	_, err := p.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model is loading")
}

func TestGenerate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	p := provider.NewOllamaProvider(server.URL, "mistral", &http.Client{Timeout: 50 * time.Millisecond})

	_, err := p.Generate(context.Background(), "slow")
	assert.Error(t, err)
}

func TestProviderFactory(t *testing.T) {
	p1, err := provider.New(config.LLMConfig{Provider: config.ProviderOllama, Model: "llama2"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p1.Name())
	assert.Equal(t, "llama2", p1.Model())

	p2, err := provider.New(config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt-4", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p2.Name())
	assert.Equal(t, "gpt-4", p2.Model())

	_, err = provider.New(config.LLMConfig{Provider: "unknown"})
	assert.Error(t, err)
}

func TestRateLimited(t *testing.T) {
	base := provider.NewOllamaProvider("", "mistral", nil)
	assert.Same(t, base, provider.RateLimited(base, 0, 1))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "ok"}`))
	}))
	defer server.Close()

	limited := provider.RateLimited(provider.NewOllamaProvider(server.URL, "mistral", server.Client()), 0.01, 1)
	assert.Equal(t, "ollama", limited.Name())
	assert.Equal(t, "mistral", limited.Model())

	ans, err := limited.Generate(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "ok", ans)

	// the bucket is empty and refills far beyond the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, "second")
	assert.Error(t, err)
}
