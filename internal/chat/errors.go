package chat

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

// ProviderError wraps a failure of a reply provider. Callers of Post never
// see it: the session falls back to FallbackReply instead.
type ProviderError struct {
	Provider  string
	Op        string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s provider error in %s: %s (caused by: %v)", e.Provider, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s provider error in %s: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func newProviderError(provider, op, msg string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Message: msg, Retryable: retryable(cause), Cause: cause}
}

func newConfigError(provider, msg string) *ProviderError {
	return &ProviderError{Provider: provider, Op: "config", Message: msg}
}

// retryable reports whether repeating the call may help. Client errors
// other than rate limiting will fail the same way again.
func retryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var ollamaErr api.StatusError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.As(err, &ollamaErr):
		status = ollamaErr.StatusCode
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status < http.StatusBadRequest || status >= http.StatusInternalServerError
}
