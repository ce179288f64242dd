// Package ai implements domain.Suggester against an OpenAI-compatible chat completions API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

const (
	// DefaultBaseURL is the official OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o"

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 120 * time.Second

	// DefaultRetryMax is the number of retries on transport errors, 429 and 5xx responses.
	DefaultRetryMax = 3

	chatCompletionsPath = "/chat/completions"
	temperature         = 0.2

	// maxErrorBody caps how much of an error response is read into the error message.
	maxErrorBody = 4 << 10
)

// Logger defines the logging interface for the AI client.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Client calls the chat completions endpoint and turns the reply into a domain.Suggestion.
type Client struct {
	httpClient *retryablehttp.Client
	apiKey     string
	baseURL    string
	model      string
	logger     Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the API base URL, e.g. a proxy or a self-hosted compatible server.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel sets the chat model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets the underlying HTTP client used for each attempt.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient.HTTPClient = hc
	}
}

// WithRetry sets the retry count and the backoff bounds.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// NewClient creates a chat completions client authenticated with apiKey.
func NewClient(apiKey string, log Logger, opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultRetryMax
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.Logger = &retryLogger{logger: log}
	// The last response is handed back so non-2xx statuses surface as APIError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		httpClient: rc,
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		logger:     log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// suggestionPayload is the JSON object the model is asked to return.
type suggestionPayload struct {
	Bump        string `json:"bump"`
	NextVersion string `json:"next_version"`
	Changelog   string `json:"changelog"`
}

// Suggest asks the model to classify messages and draft a changelog entry.
func (c *Client) Suggest(
	ctx context.Context,
	currentVersion string,
	messages []string,
	projectType domain.ProjectType,
) (*domain.Suggestion, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(currentVersion, messages, projectType)},
		},
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %w", domain.ErrAPI, err)
	}

	endpoint := c.baseURL + chatCompletionsPath
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrAPI, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Info(ctx, "requesting release suggestion", map[string]interface{}{
		"endpoint":      endpoint,
		"model":         c.model,
		"commits_count": len(messages),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: request to %s failed: %w", domain.ErrAPI, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: failed to decode chat completion: %w", ErrInvalidResponse, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion has no choices", ErrInvalidResponse)
	}

	content := chat.Choices[0].Message.Content
	c.logger.Debug(ctx, "received model reply", map[string]interface{}{
		"content_length": len(content),
	})

	return parseSuggestion(content)
}

func parseSuggestion(content string) (*domain.Suggestion, error) {
	block, ok := ExtractJSONBlock(content)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found in model reply", ErrInvalidResponse)
	}

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse suggestion JSON: %w", ErrInvalidResponse, err)
	}

	bump, err := domain.ParseBumpType(payload.Bump)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	nextVersion := strings.TrimSpace(payload.NextVersion)
	if nextVersion == "" {
		return nil, fmt.Errorf("%w: suggestion is missing next_version", ErrInvalidResponse)
	}

	return &domain.Suggestion{
		BumpType:          bump,
		NextVersion:       nextVersion,
		ChangelogMarkdown: strings.TrimSpace(payload.Changelog),
	}, nil
}

func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(raw))
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		message = body.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// retryLogger adapts Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(context.Background(), msg, kvFields(keysAndValues))
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(context.Background(), msg, kvFields(keysAndValues))
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), msg, kvFields(keysAndValues))
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), msg, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
