package session

import (
	stderrors "errors"
	"fmt"

	"github.com/eppie-io/go-proton-client/auth"
	"github.com/eppie-io/go-proton-client/restclient"
)

var (
	// ErrNotConnected is returned by every operation that needs an
	// established session when there is none.
	ErrNotConnected = stderrors.New("no active session")

	// ErrNothingToSave is returned by Dump when there is no session to
	// serialize.
	ErrNothingToSave = stderrors.New("nothing to save")

	// ErrNoRefreshToken is returned by Refresh when the session has no
	// refresh token to exchange.
	ErrNoRefreshToken = stderrors.New("no refresh token")

	// ErrNilRequest is returned by Dispatch for a nil message.
	ErrNilRequest = stderrors.New("nil request")

	// ErrEmptyTwoFactorCode is returned by ProvideTwoFactorCode for an
	// empty code.
	ErrEmptyTwoFactorCode = stderrors.New("two-factor code must not be empty")

	// ErrEmptyUID is returned by Restore for an empty session identifier.
	ErrEmptyUID = stderrors.New("uid must not be empty")

	// ErrEmptyRefreshToken is returned by Restore for an empty refresh
	// token.
	ErrEmptyRefreshToken = stderrors.New("refresh token must not be empty")

	// ErrNilDump is returned by Load for a nil payload.
	ErrNilDump = stderrors.New("nil session dump")

	// ErrMalformedDump is returned by Load when the payload does not parse
	// or carries an unrecognized version.
	ErrMalformedDump = stderrors.New("malformed session dump")
)

// RequestError reports that the remote service was reached but the call
// failed: either the server returned a structured failure, or the transport
// faulted while dispatching. Code and Message carry the server's error when
// one was recovered; HTTPStatus is zero when the request never produced a
// status. Verification is non-nil when the failure demands a solved
// human-verification challenge.
type RequestError struct {
	Code         int
	Message      string
	HTTPStatus   int
	Verification *auth.HumanVerification
	cause        error
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("session: request failed: %s (code %d)", e.Message, e.Code)
	}
	if e.cause != nil {
		return fmt.Sprintf("session: request failed: %v", e.cause)
	}
	return fmt.Sprintf("session: request failed with status %d", e.HTTPStatus)
}

func (e *RequestError) Unwrap() error { return e.cause }

// newRequestError classifies a collaborator failure. Auth-protocol and
// transport errors are folded into a RequestError; anything else is passed
// through untouched.
func newRequestError(err error) error {
	var authErr *auth.Error
	if stderrors.As(err, &authErr) {
		return &RequestError{
			Code:         authErr.Code,
			Message:      authErr.Message,
			HTTPStatus:   authErr.HTTPStatus,
			Verification: authErr.Verification,
			cause:        err,
		}
	}

	var sendErr *restclient.Error
	if stderrors.As(err, &sendErr) {
		reqErr := &RequestError{HTTPStatus: sendErr.StatusCode, cause: err}
		if resp, ok := sendErr.APIResponse(); ok {
			reqErr.Code = resp.Code
			reqErr.Message = resp.Error
		}
		return reqErr
	}

	return err
}
