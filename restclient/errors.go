package restclient

import (
	"encoding/json"
	"fmt"
)

// Error is returned when a request reached the transport but did not produce
// a decodable success reply. StatusCode is zero when the failure happened
// before any HTTP status was received (connection refused, timeout, cancelled
// context). Body keeps the raw reply so callers can recover the structured
// API error from it.
type Error struct {
	StatusCode int
	Body       []byte
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("restclient: request failed (status %d): %v", e.StatusCode, e.cause)
	}
	return fmt.Sprintf("restclient: request failed with status %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return e.cause }

// APIResponse tries to recover the structured API error envelope from the
// raw response body.
func (e *Error) APIResponse() (*CommonResponse, bool) {
	if len(e.Body) == 0 {
		return nil, false
	}
	var resp CommonResponse
	if err := json.Unmarshal(e.Body, &resp); err != nil || resp.Code == 0 {
		return nil, false
	}
	return &resp, true
}
