package auth

import (
	"errors"
	"fmt"

	"github.com/eppie-io/go-proton-client/restclient"
)

var (
	ErrEmptyUserName = errors.New("username must not be empty")
	ErrEmptyPassword = errors.New("password must not be empty")
)

// Error is a structured failure of the credential exchange itself: the server
// rejected the proof, the proof material was unusable, or verification is
// required first. Verification is non-nil when the server demanded a
// human-verification challenge.
type Error struct {
	Code         int
	Message      string
	HTTPStatus   int
	Verification *HumanVerification
	cause        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth: %s (code %d)", e.Message, e.Code)
	}
	if e.cause != nil {
		return fmt.Sprintf("auth: exchange failed: %v", e.cause)
	}
	return fmt.Sprintf("auth: exchange failed (code %d)", e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

// errorFromResponse builds an Error from a parsed API failure envelope.
func errorFromResponse(resp restclient.CommonResponse, httpStatus int) *Error {
	authErr := &Error{
		Code:       resp.Code,
		Message:    resp.Error,
		HTTPStatus: httpStatus,
	}
	if resp.Code == restclient.CodeHumanVerificationRequired {
		authErr.Verification = parseHumanVerification(resp.Details)
	}
	return authErr
}

// translateSendError converts a transport-layer failure into an auth Error,
// recovering the structured API error from the body when there is one.
func translateSendError(err error) error {
	var reqErr *restclient.Error
	if !errors.As(err, &reqErr) {
		return err
	}
	if resp, ok := reqErr.APIResponse(); ok {
		authErr := errorFromResponse(*resp, reqErr.StatusCode)
		authErr.cause = err
		return authErr
	}
	return &Error{HTTPStatus: reqErr.StatusCode, cause: err}
}
