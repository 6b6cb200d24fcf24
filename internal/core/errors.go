package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyTopic is returned when a search is requested for a blank topic.
	ErrEmptyTopic = errors.New("topic must not be empty")

	// ErrTimeout is returned when article generation exceeds its bound.
	ErrTimeout = errors.New("generation timed out")

	// ErrSuperseded marks the result of a session that a newer search replaced.
	ErrSuperseded = errors.New("search superseded by a newer request")

	// ErrUnavailable is returned when the selected narration provider cannot be used.
	ErrUnavailable = errors.New("narration provider unavailable")
)

// RateLimitError is a refusal from a rate limiter, local or remote.
type RateLimitError struct {
	RetryAfterSeconds int
	Daily             bool
	Message           string
}

func (e *RateLimitError) Error() string {
	if e.Daily {
		return "rate limited: daily limit reached, try again tomorrow"
	}
	return fmt.Sprintf("rate limited: retry after %ds", e.RetryAfterSeconds)
}

// BoundaryError is a non-2xx answer from the proxy boundary.
type BoundaryError struct {
	Operation string // "chat", "image", "speech"
	Status    int
	Message   string
}

func (e *BoundaryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s request failed with status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Operation, e.Status, e.Message)
}

// IsTimeout reports whether err is a generation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// UserMessage maps an error onto the short message shown to the reader.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var rl *RateLimitError
	var be *BoundaryError
	switch {
	case errors.Is(err, ErrEmptyTopic):
		return "Please enter a topic to search for."
	case errors.As(err, &rl):
		if rl.Daily {
			return "You have reached your daily request limit. Please try again tomorrow."
		}
		return fmt.Sprintf("Too many requests. Please try again in %d seconds.", rl.RetryAfterSeconds)
	case IsTimeout(err):
		return "Request timed out. The server is taking too long to respond. Please try again later or try a simpler query."
	case errors.Is(err, ErrUnavailable):
		return "Narration is unavailable: the selected voice provider is not configured."
	case errors.As(err, &be):
		if be.Message != "" {
			return be.Message
		}
		return fmt.Sprintf("The %s service returned an error (status %d).", be.Operation, be.Status)
	default:
		return "Failed to generate article: " + err.Error()
	}
}
