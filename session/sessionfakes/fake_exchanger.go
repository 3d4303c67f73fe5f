// Package sessionfakes provides hand-written fakes for the session package's
// collaborator interfaces.
package sessionfakes

import (
	"context"
	"sync"

	"github.com/eppie-io/go-proton-client/auth"
	"github.com/eppie-io/go-proton-client/session"
)

var _ session.Exchanger = (*FakeExchanger)(nil)

// AuthenticateCall records one invocation of Authenticate.
type AuthenticateCall struct {
	Username     string
	Password     string
	Verification *auth.VerificationToken
}

// TwoFactorCall records one invocation of SubmitTwoFactor.
type TwoFactorCall struct {
	Identity auth.Identity
	Code     string
}

// RefreshCall records one invocation of Refresh.
type RefreshCall struct {
	Identity     auth.Identity
	RefreshToken string
}

// FakeExchanger is a canned-response Exchanger that records every call.
type FakeExchanger struct {
	mu sync.Mutex

	AuthenticateResult *auth.Data
	AuthenticateErr    error
	AuthenticateCalls  []AuthenticateCall

	TwoFactorResult *auth.Data
	TwoFactorErr    error
	TwoFactorCalls  []TwoFactorCall

	RefreshResult *auth.Data
	RefreshErr    error
	RefreshFunc   func(ctx context.Context, id auth.Identity, refreshToken string) (*auth.Data, error)
	RefreshCalls  []RefreshCall

	LogoutErr   error
	LogoutCalls []auth.Identity
}

func (f *FakeExchanger) Authenticate(_ context.Context, username, password string, verification *auth.VerificationToken) (*auth.Data, error) {
	f.mu.Lock()
	f.AuthenticateCalls = append(f.AuthenticateCalls, AuthenticateCall{
		Username:     username,
		Password:     password,
		Verification: verification,
	})
	f.mu.Unlock()

	if f.AuthenticateErr != nil {
		return nil, f.AuthenticateErr
	}
	return f.AuthenticateResult, nil
}

func (f *FakeExchanger) SubmitTwoFactor(_ context.Context, id auth.Identity, code string) (*auth.Data, error) {
	f.mu.Lock()
	f.TwoFactorCalls = append(f.TwoFactorCalls, TwoFactorCall{Identity: id, Code: code})
	f.mu.Unlock()

	if f.TwoFactorErr != nil {
		return nil, f.TwoFactorErr
	}
	return f.TwoFactorResult, nil
}

func (f *FakeExchanger) Refresh(ctx context.Context, id auth.Identity, refreshToken string) (*auth.Data, error) {
	f.mu.Lock()
	f.RefreshCalls = append(f.RefreshCalls, RefreshCall{Identity: id, RefreshToken: refreshToken})
	refreshFunc := f.RefreshFunc
	f.mu.Unlock()

	if refreshFunc != nil {
		return refreshFunc(ctx, id, refreshToken)
	}
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	return f.RefreshResult, nil
}

func (f *FakeExchanger) Logout(_ context.Context, id auth.Identity) error {
	f.mu.Lock()
	f.LogoutCalls = append(f.LogoutCalls, id)
	f.mu.Unlock()
	return f.LogoutErr
}

// CallCount returns the total number of exchange invocations recorded.
func (f *FakeExchanger) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.AuthenticateCalls) + len(f.TwoFactorCalls) + len(f.RefreshCalls) + len(f.LogoutCalls)
}
