package aksara

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrRetrievalUnavailable reports that every query variant's search failed.
// The engine recovers it into an explanatory tool turn rather than aborting
// the request.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable: all query variants failed")

// ErrConversationConflict reports that a concurrent request on the same
// thread held the per-thread lock beyond the bounded wait. Callers should
// retry.
var ErrConversationConflict = errors.New("conversation busy: concurrent request on the same thread")

// ErrInvalidInput reports request validation failure (empty thread id or
// message). Surfaced to the caller as a typed error, never recovered.
var ErrInvalidInput = errors.New("invalid input")

// ErrLLM is a provider-level failure that is not an HTTP status error.
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-200 response from a capability endpoint. Status 429 and
// 503 are treated as transient by the retry middleware; RetryAfter, when
// set, is the server-requested minimum delay.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header value in delta-seconds form.
// HTTP-date form and malformed values yield zero.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
