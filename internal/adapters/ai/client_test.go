package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})  {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

var _ domain.Suggester = (*Client)(nil)

// chatReply builds a chat completions response body with the given assistant content.
func chatReply(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
	return body
}

func newTestClient(serverURL string) *Client {
	return NewClient("test-key", &mockLogger{},
		WithBaseURL(serverURL),
		WithModel("gpt-test"),
		WithRetry(2, time.Millisecond, 5*time.Millisecond),
	)
}

func TestClient_Suggest_Success(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatReply(t, "```json\n{\"bump\": \"minor\", \"next_version\": \"1.1.0\", \"changelog\": \"- Added new feature X\\n- Improved performance\"}\n```"))
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/v1/")
	commits := []string{"feat: Add feature X", "perf: Improve performance"}

	suggestion, err := client.Suggest(context.Background(), "1.0.0", commits, domain.ProjectRust)

	require.NoError(t, err)
	assert.Equal(t, domain.BumpMinor, suggestion.BumpType)
	assert.Equal(t, "1.1.0", suggestion.NextVersion)
	assert.Equal(t, "- Added new feature X\n- Improved performance", suggestion.ChangelogMarkdown)

	assert.Equal(t, "gpt-test", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Current version: 1.0.0")
	assert.Contains(t, got.Messages[1].Content, "Project type: Rust")
	assert.Contains(t, got.Messages[1].Content, "feat: Add feature X")
	assert.Contains(t, got.Messages[1].Content, "perf: Improve performance")
}

func TestClient_Suggest_NoCommits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatReply(t, "```json\n{\"bump\": \"none\", \"next_version\": \"1.0.0\", \"changelog\": \"No changes\"}\n```"))
	}))
	defer server.Close()

	suggestion, err := newTestClient(server.URL).Suggest(context.Background(), "1.0.0", nil, domain.ProjectJavaScript)

	require.NoError(t, err)
	assert.Equal(t, domain.BumpNone, suggestion.BumpType)
	assert.Equal(t, "1.0.0", suggestion.NextVersion)
	assert.Equal(t, "No changes", suggestion.ChangelogMarkdown)
}

func TestClient_Suggest_InvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "no json", content: "I'm not sure how to respond with JSON. Could you help me?"},
		{name: "broken json", content: "```json\n{\"bump\": minor}\n```"},
		{name: "unknown bump", content: `{"bump": "huge", "next_version": "2.0.0", "changelog": "- x"}`},
		{name: "missing next version", content: `{"bump": "patch", "changelog": "- x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(chatReply(t, tt.content))
			}))
			defer server.Close()

			suggestion, err := newTestClient(server.URL).Suggest(context.Background(), "1.0.0", []string{"test: Add test"}, domain.ProjectRust)

			require.Error(t, err)
			assert.Nil(t, suggestion)
			assert.ErrorIs(t, err, ErrInvalidResponse)
			assert.ErrorIs(t, err, domain.ErrAPI)
		})
	}
}

func TestClient_Suggest_MalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>oops</html>"},
		{name: "no choices", body: `{"choices": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Suggest(context.Background(), "1.0.0", []string{"fix: x"}, domain.ProjectRust)

			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestClient_Suggest_APIError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Suggest(context.Background(), "1.0.0", []string{"docs: Update docs"}, domain.ProjectRust)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAPI)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
}

func TestClient_Suggest_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(chatReply(t, `{"bump": "patch", "next_version": "1.0.1", "changelog": "- Fixed typo"}`))
	}))
	defer server.Close()

	suggestion, err := newTestClient(server.URL).Suggest(context.Background(), "1.0.0", []string{"fix: typo"}, domain.ProjectRust)

	require.NoError(t, err)
	assert.Equal(t, domain.BumpPatch, suggestion.BumpType)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Suggest_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Suggest(context.Background(), "1.0.0", []string{"fix: x"}, domain.ProjectRust)

	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Contains(t, err.Error(), "slow down")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Suggest_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient("k", &mockLogger{}, WithBaseURL(url), WithRetry(0, time.Millisecond, time.Millisecond))
	_, err := client.Suggest(context.Background(), "1.0.0", []string{"fix: x"}, domain.ProjectRust)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAPI)
	assert.NotErrorIs(t, err, ErrInvalidResponse)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("k", &mockLogger{}, WithBaseURL(""), WithModel(""))

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultModel, client.model)
	assert.Equal(t, DefaultRetryMax, client.httpClient.RetryMax)
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 500, Message: "boom"}

	assert.ErrorIs(t, err, domain.ErrAPI)
	assert.Equal(t, "AI API request failed with status 500: boom", err.Error())
	assert.False(t, IsAuthError(err))
	assert.False(t, IsRateLimited(err))
}
