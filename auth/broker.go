// Package auth performs the credential exchange with the Proton API: the
// two-step password-proof login, second-factor submission, token refresh and
// logout notification. The broker is stateless; session bookkeeping belongs
// to the session package.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/eppie-io/go-proton-client/auth/srp"
	"github.com/eppie-io/go-proton-client/restclient"
)

const (
	endpointAuthInfo    = "/auth/info"
	endpointAuth        = "/auth"
	endpointAuthTwoFA   = "/auth/2fa"
	endpointAuthRefresh = "/auth/refresh"

	grantTypeRefresh  = "refresh_token"
	responseTypeToken = "token"

	headerUID                   = "x-pm-uid"
	headerVerificationToken     = "x-pm-human-verification-token"
	headerVerificationTokenType = "x-pm-human-verification-token-type"
)

// Broker drives the auth endpoints over an injected sender. Proof
// computation is delegated to the srp.Client.
type Broker struct {
	sender       restclient.Sender
	srpClient    srp.Client
	clientSecret string
	redirectURI  string
	logger       zerolog.Logger
}

// BrokerOption modifies a Broker during construction.
type BrokerOption func(*Broker)

// WithClientSecret attaches the optional client secret to login requests.
func WithClientSecret(secret string) BrokerOption {
	return func(b *Broker) { b.clientSecret = secret }
}

// WithRedirectURI sets the redirect URI sent with refresh requests.
func WithRedirectURI(uri string) BrokerOption {
	return func(b *Broker) { b.redirectURI = uri }
}

// WithLogger sets the broker logger.
func WithLogger(logger zerolog.Logger) BrokerOption {
	return func(b *Broker) { b.logger = logger }
}

// NewBroker creates a Broker. Both the sender and the SRP client are
// required.
func NewBroker(sender restclient.Sender, srpClient srp.Client, options ...BrokerOption) (*Broker, error) {
	if sender == nil {
		return nil, errors.New("[NewBroker] sender is required")
	}
	if srpClient == nil {
		return nil, errors.New("[NewBroker] srp client is required")
	}

	broker := &Broker{
		sender:    sender,
		srpClient: srpClient,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(broker)
	}
	return broker, nil
}

// Authenticate runs the two-step SRP exchange and returns the session
// credentials the server issued. A solved human-verification token may be
// attached to the attempt; pass nil when there is none.
func (b *Broker) Authenticate(ctx context.Context, username, password string, verification *VerificationToken) (*Data, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUserName
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	info, err := b.fetchChallenge(ctx, username, verification)
	if err != nil {
		return nil, err
	}

	proofs, err := b.srpClient.Proofs(username, password, srp.Challenge{
		Modulus:         info.Modulus,
		ServerEphemeral: info.ServerEphemeral,
		Salt:            info.Salt,
		Version:         info.Version,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Broker.Authenticate] compute proofs")
	}

	msg := restclient.NewPayloadMessage[Data](http.MethodPost, endpointAuth, authRequest{
		Username:        username,
		ClientEphemeral: proofs.ClientEphemeral,
		ClientProof:     proofs.ClientProof,
		SRPSession:      info.SRPSession,
		ClientSecret:    b.clientSecret,
	})
	attachVerification(msg.Header(), verification)

	status, err := b.sender.Send(ctx, msg)
	if err != nil {
		return nil, translateSendError(err)
	}
	if !msg.Response.Success() {
		return nil, errorFromResponse(msg.Response.CommonResponse, status)
	}
	if err := srp.VerifyServerProof(proofs, msg.Response.ServerProof); err != nil {
		return nil, &Error{Message: err.Error(), HTTPStatus: status, cause: err}
	}

	b.logger.Debug().Str("uid", msg.Response.UID).Msg("authenticated")
	return &msg.Response, nil
}

// SubmitTwoFactor sends the second-factor code for the given session.
func (b *Broker) SubmitTwoFactor(ctx context.Context, id Identity, code string) (*Data, error) {
	msg := restclient.NewPayloadMessage[Data](http.MethodPost, endpointAuthTwoFA, twoFactorRequest{
		TwoFactorCode: code,
	})
	attachIdentity(msg.Header(), id)

	status, err := b.sender.Send(ctx, msg)
	if err != nil {
		return nil, translateSendError(err)
	}
	if !msg.Response.Success() {
		return nil, errorFromResponse(msg.Response.CommonResponse, status)
	}
	return &msg.Response, nil
}

// Refresh exchanges the refresh token for a fresh credential set.
func (b *Broker) Refresh(ctx context.Context, id Identity, refreshToken string) (*Data, error) {
	msg := restclient.NewPayloadMessage[Data](http.MethodPost, endpointAuthRefresh, refreshRequest{
		UID:          id.UID,
		RefreshToken: refreshToken,
		GrantType:    grantTypeRefresh,
		ResponseType: responseTypeToken,
		RedirectURI:  b.redirectURI,
	})
	attachIdentity(msg.Header(), id)

	status, err := b.sender.Send(ctx, msg)
	if err != nil {
		return nil, translateSendError(err)
	}
	if !msg.Response.Success() {
		return nil, errorFromResponse(msg.Response.CommonResponse, status)
	}

	b.logger.Debug().Str("uid", id.UID).Msg("session refreshed")
	return &msg.Response, nil
}

// Logout notifies the server that the session's tokens should be revoked.
func (b *Broker) Logout(ctx context.Context, id Identity) error {
	msg := restclient.NewMessage[restclient.CommonResponse](http.MethodDelete, endpointAuth)
	attachIdentity(msg.Header(), id)

	status, err := b.sender.Send(ctx, msg)
	if err != nil {
		return translateSendError(err)
	}
	if !msg.Response.Success() {
		return errorFromResponse(msg.Response, status)
	}
	return nil
}

// fetchChallenge asks the server for the SRP challenge of the first leg.
func (b *Broker) fetchChallenge(ctx context.Context, username string, verification *VerificationToken) (*infoResponse, error) {
	msg := restclient.NewPayloadMessage[infoResponse](http.MethodPost, endpointAuthInfo, infoRequest{
		Username: username,
	})
	attachVerification(msg.Header(), verification)

	status, err := b.sender.Send(ctx, msg)
	if err != nil {
		return nil, translateSendError(err)
	}
	if !msg.Response.Success() {
		return nil, errorFromResponse(msg.Response.CommonResponse, status)
	}
	if msg.Response.Modulus == "" || msg.Response.ServerEphemeral == "" {
		return nil, &Error{Message: srp.ErrInvalidChallenge.Error(), HTTPStatus: status, cause: srp.ErrInvalidChallenge}
	}
	return &msg.Response, nil
}

func attachIdentity(header http.Header, id Identity) {
	header.Set(headerUID, id.UID)
	header.Set("Authorization", id.TokenType+" "+id.AccessToken)
}

func attachVerification(header http.Header, v *VerificationToken) {
	if v == nil {
		return
	}
	header.Set(headerVerificationToken, v.Token)
	header.Set(headerVerificationTokenType, v.Type)
}
