package wire

import "errors"

// Response is the uniform result envelope for every REST call and socket action.
// Callers must check Success before reading Data.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Ok wraps data in a successful envelope.
func Ok[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// Fail builds a failed envelope. An empty message is replaced so callers
// always have something to show.
func Fail[T any](msg string) Response[T] {
	if msg == "" {
		msg = "Unknown error occurred"
	}
	return Response[T]{Error: msg}
}

// ErrorText returns the best human-readable failure text, or "" on success.
func (r Response[T]) ErrorText() string {
	if r.Success {
		return ""
	}
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "Unknown error occurred"
}

// Err converts a failed envelope into an error for callers that prefer one.
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.ErrorText())
}
