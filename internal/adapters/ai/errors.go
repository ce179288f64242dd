package ai

import (
	"errors"
	"fmt"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// ErrInvalidResponse indicates the API answered but the content could not be used.
var ErrInvalidResponse = fmt.Errorf("%w: invalid response", domain.ErrAPI)

// APIError represents a non-success HTTP response from the chat completions API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AI API request failed with status %d: %s", e.StatusCode, e.Message)
}

// Unwrap makes every APIError match domain.ErrAPI.
func (e *APIError) Unwrap() error {
	return domain.ErrAPI
}

// IsAuthError returns true if the error indicates a rejected API key.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the API kept rejecting requests for exceeding its rate limit.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
