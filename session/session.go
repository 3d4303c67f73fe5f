// Package session owns the lifecycle of an authenticated Proton session:
// establishing it, keeping it fresh, persisting it across restarts and
// decorating outgoing API calls with its credentials.
//
// All session state lives in a single mutex-guarded record that is either
// wholly present or wholly absent. The lock is never held across a network
// call: operations snapshot what they need, call out, then re-acquire the
// lock to commit. Readers take the lock for a momentary consistent snapshot.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/eppie-io/go-proton-client/auth"
	"github.com/eppie-io/go-proton-client/restclient"
)

// Exchanger is the credential-exchange capability the session depends on.
// *auth.Broker implements it.
type Exchanger interface {
	Authenticate(ctx context.Context, username, password string, verification *auth.VerificationToken) (*auth.Data, error)
	SubmitTwoFactor(ctx context.Context, id auth.Identity, code string) (*auth.Data, error)
	Refresh(ctx context.Context, id auth.Identity, refreshToken string) (*auth.Data, error)
	Logout(ctx context.Context, id auth.Identity) error
}

// Dispatcher sends an already-decorated message to the API.
// *restclient.Client implements it.
type Dispatcher interface {
	Send(ctx context.Context, msg restclient.Message) (int, error)
}

// sessionData is the all-or-nothing session record. It is only ever replaced
// wholesale under the lock, never mutated field by field across call sites.
type sessionData struct {
	uid          string
	accessToken  string
	tokenType    string
	refreshToken string
	scope        string
	passwordMode int
	expiresAt    time.Time
	twoFactor    bool
	totp         bool
}

// Session is the controller for one logical connection to the API.
type Session struct {
	exchanger  Exchanger
	dispatcher Dispatcher
	logger     zerolog.Logger
	now        func() time.Time
	userAgent  string
	appVersion string

	mu           sync.Mutex
	data         *sessionData
	verification *auth.VerificationToken

	// refreshGroup coalesces concurrent Refresh calls onto one exchange.
	refreshGroup singleflight.Group
}

// Option modifies a Session during construction.
type Option func(*Session)

// WithUserAgent sets the User-Agent attached to dispatched messages.
func WithUserAgent(ua string) Option {
	return func(s *Session) { s.userAgent = ua }
}

// WithAppVersion sets the x-pm-appversion attached to dispatched messages.
func WithAppVersion(v string) Option {
	return func(s *Session) { s.appVersion = v }
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithNowFunc replaces the clock (for tests).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a Session. Both collaborators are required.
func New(exchanger Exchanger, dispatcher Dispatcher, options ...Option) (*Session, error) {
	if exchanger == nil {
		return nil, errors.New("[session.New] exchanger is required")
	}
	if dispatcher == nil {
		return nil, errors.New("[session.New] dispatcher is required")
	}

	s := &Session{
		exchanger:  exchanger,
		dispatcher: dispatcher,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login performs the password-proof exchange and installs the resulting
// session. Empty credentials are rejected before any network attempt. On a
// failed exchange the previous state, if any, is left untouched; when the
// failure carries a human-verification challenge it is available on the
// returned *RequestError.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.Wrap(auth.ErrEmptyUserName, "[Session.Login]")
	}
	if password == "" {
		return errors.Wrap(auth.ErrEmptyPassword, "[Session.Login]")
	}

	s.mu.Lock()
	verification := s.verification
	s.mu.Unlock()

	data, err := s.exchanger.Authenticate(ctx, username, password, verification)
	if err != nil {
		return newRequestError(err)
	}

	s.mu.Lock()
	s.data = s.newSessionData(data, data.PasswordMode)
	s.data.twoFactor = data.TwoFactor.Enabled != 0
	s.data.totp = data.TwoFactor.TOTP != 0
	s.mu.Unlock()

	s.logger.Debug().Str("uid", data.UID).Bool("two_factor", data.TwoFactor.Enabled != 0).Msg("logged in")
	return nil
}

// ProvideTwoFactorCode completes a pending second-factor challenge. The scope
// is elevated and the pending-second-factor flags drop; tokens are left
// untouched.
func (s *Session) ProvideTwoFactorCode(ctx context.Context, code string) error {
	if code == "" {
		return errors.Wrap(ErrEmptyTwoFactorCode, "[Session.ProvideTwoFactorCode]")
	}

	id, err := s.identity()
	if err != nil {
		return err
	}

	data, err := s.exchanger.SubmitTwoFactor(ctx, id, code)
	if err != nil {
		return newRequestError(err)
	}

	s.mu.Lock()
	if s.data != nil {
		s.data.scope = data.Scope
		s.data.twoFactor = false
		s.data.totp = false
	}
	s.mu.Unlock()
	return nil
}

// Logout clears the session and then notifies the server with the captured
// identity. The local state is gone even when the notification fails; a
// concurrent reader never observes a half-cleared session.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return errors.Wrap(ErrNotConnected, "[Session.Logout]")
	}
	id := auth.Identity{UID: s.data.uid, AccessToken: s.data.accessToken, TokenType: s.data.tokenType}
	s.data = nil
	s.verification = nil
	s.mu.Unlock()

	if err := s.exchanger.Logout(ctx, id); err != nil {
		return newRequestError(err)
	}
	s.logger.Debug().Str("uid", id.UID).Msg("logged out")
	return nil
}

// Refresh exchanges the refresh token for fresh credentials and installs
// them. A refreshed session is never mid-two-factor, so the flags are
// cleared. Failure leaves the previous session untouched; callers must fall
// back to Login when refresh permanently fails. Concurrent calls are
// coalesced onto a single exchange that runs on the first caller's context:
// callers joining an in-flight refresh share its outcome, including a
// cancellation of that first context.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *Session) refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return errors.Wrap(ErrNotConnected, "[Session.Refresh]")
	}
	if s.data.refreshToken == "" {
		s.mu.Unlock()
		return errors.Wrap(ErrNoRefreshToken, "[Session.Refresh]")
	}
	id := auth.Identity{UID: s.data.uid, AccessToken: s.data.accessToken, TokenType: s.data.tokenType}
	refreshToken := s.data.refreshToken
	passwordMode := s.data.passwordMode
	s.mu.Unlock()

	data, err := s.exchanger.Refresh(ctx, id, refreshToken)
	if err != nil {
		return newRequestError(err)
	}

	s.mu.Lock()
	fresh := s.newSessionData(data, passwordMode)
	if fresh.uid == "" {
		fresh.uid = id.UID
	}
	if fresh.refreshToken == "" {
		// The server may omit the refresh token when it does not rotate.
		fresh.refreshToken = refreshToken
	}
	s.data = fresh
	s.mu.Unlock()

	s.logger.Debug().Str("uid", id.UID).Msg("session refreshed")
	return nil
}

// Restore resumes a session across process boundaries from its identifier
// and refresh token alone: it seeds a minimal session record and runs the
// refresh flow to obtain usable credentials.
func (s *Session) Restore(ctx context.Context, uid, refreshToken string) error {
	if strings.TrimSpace(uid) == "" {
		return errors.Wrap(ErrEmptyUID, "[Session.Restore]")
	}
	if refreshToken == "" {
		return errors.Wrap(ErrEmptyRefreshToken, "[Session.Restore]")
	}

	s.mu.Lock()
	s.data = &sessionData{uid: uid, refreshToken: refreshToken}
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// IsExpired reports whether the access token must be considered invalid
// within the given reserve. A session without a recorded expiration (a
// legacy dump) is always expired, forcing a refresh before use.
func (s *Session) IsExpired(reserve time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return false, errors.Wrap(ErrNotConnected, "[Session.IsExpired]")
	}
	if s.data.expiresAt.IsZero() {
		return true, nil
	}
	return !s.now().Add(reserve).Before(s.data.expiresAt), nil
}

// Dispatch decorates msg with the session credentials and hands it to the
// dispatcher. Transport failures are translated into a *RequestError that
// carries the HTTP status and any structured server error recovered from the
// response; the returned status is the dispatcher's either way.
func (s *Session) Dispatch(ctx context.Context, msg restclient.Message) (int, error) {
	if msg == nil {
		return 0, errors.Wrap(ErrNilRequest, "[Session.Dispatch]")
	}

	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return 0, errors.Wrap(ErrNotConnected, "[Session.Dispatch]")
	}
	id := auth.Identity{UID: s.data.uid, AccessToken: s.data.accessToken, TokenType: s.data.tokenType}
	verification := s.verification
	s.mu.Unlock()

	header := msg.Header()
	header.Set("x-pm-uid", id.UID)
	header.Set("Authorization", id.TokenType+" "+id.AccessToken)
	if s.userAgent != "" {
		header.Set("User-Agent", s.userAgent)
	}
	if s.appVersion != "" {
		header.Set("x-pm-appversion", s.appVersion)
	}
	if verification != nil {
		header.Set("x-pm-human-verification-token", verification.Token)
		header.Set("x-pm-human-verification-token-type", verification.Type)
	}

	status, err := s.dispatcher.Send(ctx, msg)
	if err != nil {
		return status, newRequestError(err)
	}
	return status, nil
}

// SetHumanVerification attaches a solved verification challenge to
// subsequent requests. The session does not solve challenges itself.
func (s *Session) SetHumanVerification(method, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verification = &auth.VerificationToken{Type: method, Token: token}
}

// ResetHumanVerification removes a previously attached verification token.
func (s *Session) ResetHumanVerification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verification = nil
}

// UID returns the session identifier, empty when there is no session.
func (s *Session) UID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ""
	}
	return s.data.uid
}

// Scope returns the space-delimited permission tokens of the session.
func (s *Session) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ""
	}
	return s.data.scope
}

// Scopes returns the individual permission tokens, nil when there are none.
func (s *Session) Scopes() []string {
	scope := s.Scope()
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}

// PasswordMode returns the server-reported password configuration flag.
func (s *Session) PasswordMode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return 0
	}
	return s.data.passwordMode
}

// IsTwoFactor reports whether the session still has a second factor pending.
func (s *Session) IsTwoFactor() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data != nil && s.data.twoFactor
}

// IsTOTP reports whether the pending second factor is a time-based code.
func (s *Session) IsTOTP() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data != nil && s.data.totp
}

// ExpiresAt returns the access-token expiration instant, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return time.Time{}
	}
	return s.data.expiresAt
}

// identity snapshots the credential triple, failing when no session exists.
func (s *Session) identity() (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return auth.Identity{}, errors.Wrap(ErrNotConnected, "[Session.identity]")
	}
	return auth.Identity{UID: s.data.uid, AccessToken: s.data.accessToken, TokenType: s.data.tokenType}, nil
}

// newSessionData builds a fresh record from an exchange result. Two-factor
// flags start cleared; Login sets them from the server's settings.
func (s *Session) newSessionData(data *auth.Data, passwordMode int) *sessionData {
	fresh := &sessionData{
		uid:          data.UID,
		accessToken:  data.AccessToken,
		tokenType:    data.TokenType,
		refreshToken: data.RefreshToken,
		scope:        data.Scope,
		passwordMode: passwordMode,
	}
	if data.ExpiresIn > 0 {
		fresh.expiresAt = s.now().Add(time.Duration(data.ExpiresIn) * time.Second)
	}
	return fresh
}
