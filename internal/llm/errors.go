package llm

import "fmt"

// UpstreamServiceError represents a failed call to a completion or embedding endpoint.
// StatusCode is zero when the failure happened before or after the HTTP exchange.
type UpstreamServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *UpstreamServiceError) Error() string {
	prefix := fmt.Sprintf("%s call failed", e.Service)
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s call failed with status %d", e.Service, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Cause
}

// Service names used in UpstreamServiceError
const (
	ServiceCompletion = "completion"
	ServiceEmbedding  = "embedding"
)
