package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvableSource = errors.New("cannot find a video id in source url")
	ErrVideoNotFound      = errors.New("video not found")
	ErrNotLive            = errors.New("video has no active live chat")
	ErrChatEnded          = errors.New("live chat has ended")
	ErrQuotaExceeded      = errors.New("api quota exceeded, try again later")
	ErrNoSource           = errors.New("chat source is not configured")
)

// UpstreamError is any other failure reported by the chat source.
type UpstreamError struct {
	StatusCode int // 0 for transport failures
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("chat source: %s", e.Message)
	}
	return fmt.Sprintf("chat source: %d %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
