package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eppie-io/go-proton-client/auth"
	"github.com/eppie-io/go-proton-client/auth/srp"
	"github.com/eppie-io/go-proton-client/auth/srp/srpfakes"
	"github.com/eppie-io/go-proton-client/restclient"
	"github.com/eppie-io/go-proton-client/restclient/restclientfakes"
)

const (
	testUsername     = "john.doe@example.com"
	testPassword     = "password123"
	testUID          = "uid-001"
	testAccessToken  = "access-token-1"
	testRefreshToken = "refresh-token-1"
)

const challengeBody = `{
	"Code": 1000,
	"Modulus": "modulus-b64",
	"ServerEphemeral": "server-ephemeral-b64",
	"Version": 4,
	"Salt": "salt-b64",
	"SRPSession": "srp-session-1"
}`

const authSuccessBody = `{
	"Code": 1000,
	"UID": "uid-001",
	"TokenType": "Bearer",
	"AccessToken": "access-token-1",
	"RefreshToken": "refresh-token-1",
	"ExpiresIn": 3600,
	"Scope": "full mail",
	"PasswordMode": 1,
	"ServerProof": "fake-server-proof",
	"2FA": {"Enabled": 0, "TOTP": 0}
}`

// testFixture wires a broker to a canned sender and SRP client.
type testFixture struct {
	sender *restclientfakes.FakeSender
	srp    *srpfakes.FakeSRPClient
	broker *auth.Broker
}

func setupTestFixture(t *testing.T, options ...auth.BrokerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		sender: restclientfakes.NewFakeSender(),
		srp:    srpfakes.NewFakeSRPClient(),
	}

	broker, err := auth.NewBroker(f.sender, f.srp, options...)
	require.NoError(t, err)

	f.broker = broker
	return f
}

func TestNewBroker_MissingDependencies(t *testing.T) {
	_, err := auth.NewBroker(nil, srpfakes.NewFakeSRPClient())
	require.Error(t, err)

	_, err = auth.NewBroker(restclientfakes.NewFakeSender(), nil)
	require.Error(t, err)
}

func TestAuthenticate_EmptyCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.broker.Authenticate(context.Background(), "", testPassword, nil)
	require.ErrorIs(t, err, auth.ErrEmptyUserName)

	_, err = f.broker.Authenticate(context.Background(), "   ", testPassword, nil)
	require.ErrorIs(t, err, auth.ErrEmptyUserName)

	_, err = f.broker.Authenticate(context.Background(), testUsername, "", nil)
	require.ErrorIs(t, err, auth.ErrEmptyPassword)

	require.Empty(t, f.sender.SendCalls)
	require.Empty(t, f.srp.Calls)
}

func TestAuthenticate_Success(t *testing.T) {
	f := setupTestFixture(t, auth.WithClientSecret("client-secret-1"))
	f.sender.Respond(http.MethodPost, "/auth/info", restclientfakes.Reply{Status: http.StatusOK, Body: challengeBody})
	f.sender.Respond(http.MethodPost, "/auth", restclientfakes.Reply{Status: http.StatusOK, Body: authSuccessBody})

	data, err := f.broker.Authenticate(context.Background(), testUsername, testPassword, nil)
	require.NoError(t, err)
	require.Equal(t, testUID, data.UID)
	require.Equal(t, testAccessToken, data.AccessToken)
	require.Equal(t, testRefreshToken, data.RefreshToken)
	require.Equal(t, "full mail", data.Scope)
	require.Equal(t, int64(3600), data.ExpiresIn)

	// The challenge material is handed to the proof computation verbatim.
	require.Len(t, f.srp.Calls, 1)
	require.Equal(t, testUsername, f.srp.Calls[0].Username)
	require.Equal(t, testPassword, f.srp.Calls[0].Password)
	require.Equal(t, srp.Challenge{
		Modulus:         "modulus-b64",
		ServerEphemeral: "server-ephemeral-b64",
		Salt:            "salt-b64",
		Version:         4,
	}, f.srp.Calls[0].Challenge)

	calls := f.sender.CallsTo(http.MethodPost, "/auth")
	require.Len(t, calls, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Payload, &payload))
	require.Equal(t, testUsername, payload["Username"])
	require.Equal(t, "fake-client-ephemeral", payload["ClientEphemeral"])
	require.Equal(t, "fake-client-proof", payload["ClientProof"])
	require.Equal(t, "srp-session-1", payload["SRPSession"])
	require.Equal(t, "client-secret-1", payload["ClientSecret"])
	// The password never leaves the client.
	require.NotContains(t, string(calls[0].Payload), testPassword)
}

func TestAuthenticate_ServerProofMismatch(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodPost, "/auth/info", restclientfakes.Reply{Status: http.StatusOK, Body: challengeBody})

	tampered := `{
		"Code": 1000,
		"UID": "uid-001",
		"AccessToken": "access-token-1",
		"ServerProof": "wrong-proof"
	}`
	f.sender.Respond(http.MethodPost, "/auth", restclientfakes.Reply{Status: http.StatusOK, Body: tampered})

	_, err := f.broker.Authenticate(context.Background(), testUsername, testPassword, nil)
	require.ErrorIs(t, err, srp.ErrServerProofMismatch)
}

func TestAuthenticate_InvalidChallenge(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodPost, "/auth/info", restclientfakes.Reply{Status: http.StatusOK, Body: `{"Code": 1000}`})

	_, err := f.broker.Authenticate(context.Background(), testUsername, testPassword, nil)
	require.ErrorIs(t, err, srp.ErrInvalidChallenge)
	require.Empty(t, f.srp.Calls)
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodPost, "/auth/info", restclientfakes.Reply{Status: http.StatusOK, Body: challengeBody})
	f.sender.Respond(http.MethodPost, "/auth", restclientfakes.Reply{
		Status: http.StatusUnauthorized,
		Err: &restclient.Error{
			StatusCode: http.StatusUnauthorized,
			Body:       []byte(`{"Code": 8002, "Error": "Incorrect login credentials. Please try again"}`),
		},
	})

	_, err := f.broker.Authenticate(context.Background(), testUsername, testPassword, nil)

	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, restclient.CodeInvalidCredentials, authErr.Code)
	require.Equal(t, http.StatusUnauthorized, authErr.HTTPStatus)
	require.Nil(t, authErr.Verification)
}

func TestAuthenticate_HumanVerificationRequired(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodPost, "/auth/info", restclientfakes.Reply{Status: http.StatusOK, Body: challengeBody})
	f.sender.Respond(http.MethodPost, "/auth", restclientfakes.Reply{
		Status: http.StatusUnprocessableEntity,
		Err: &restclient.Error{
			StatusCode: http.StatusUnprocessableEntity,
			Body: []byte(`{
				"Code": 9001,
				"Error": "Human verification required",
				"Details": {
					"HumanVerificationMethods": ["captcha", "sms"],
					"HumanVerificationToken": "hv-token"
				}
			}`),
		},
	})

	_, err := f.broker.Authenticate(context.Background(), testUsername, testPassword, nil)

	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, restclient.CodeHumanVerificationRequired, authErr.Code)
	require.NotNil(t, authErr.Verification)
	require.Equal(t, []string{"captcha", "sms"}, authErr.Verification.Methods)
	require.Equal(t, "hv-token", authErr.Verification.Token)
}

func TestAuthenticate_AttachesVerificationToken(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodPost, "/auth/info", restclientfakes.Reply{Status: http.StatusOK, Body: challengeBody})
	f.sender.Respond(http.MethodPost, "/auth", restclientfakes.Reply{Status: http.StatusOK, Body: authSuccessBody})

	verification := &auth.VerificationToken{Type: "captcha", Token: "solved-token"}
	_, err := f.broker.Authenticate(context.Background(), testUsername, testPassword, verification)
	require.NoError(t, err)

	for _, endpoint := range []string{"/auth/info", "/auth"} {
		calls := f.sender.CallsTo(http.MethodPost, endpoint)
		require.Len(t, calls, 1)
		require.Equal(t, "solved-token", calls[0].Header.Get("x-pm-human-verification-token"))
		require.Equal(t, "captcha", calls[0].Header.Get("x-pm-human-verification-token-type"))
	}
}

func TestSubmitTwoFactor_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodPost, "/auth/2fa", restclientfakes.Reply{
		Status: http.StatusOK,
		Body:   `{"Code": 1000, "Scope": "full mail"}`,
	})

	id := auth.Identity{UID: testUID, AccessToken: testAccessToken, TokenType: "Bearer"}
	data, err := f.broker.SubmitTwoFactor(context.Background(), id, "123456")
	require.NoError(t, err)
	require.Equal(t, "full mail", data.Scope)

	calls := f.sender.CallsTo(http.MethodPost, "/auth/2fa")
	require.Len(t, calls, 1)
	require.Equal(t, testUID, calls[0].Header.Get("x-pm-uid"))
	require.Equal(t, "Bearer "+testAccessToken, calls[0].Header.Get("Authorization"))
	require.JSONEq(t, `{"TwoFactorCode": "123456"}`, string(calls[0].Payload))
}

func TestRefresh_SendsGrantRequest(t *testing.T) {
	f := setupTestFixture(t, auth.WithRedirectURI("https://protonmail.ch"))
	f.sender.Respond(http.MethodPost, "/auth/refresh", restclientfakes.Reply{
		Status: http.StatusOK,
		Body:   `{"Code": 1000, "UID": "uid-001", "AccessToken": "access-token-2", "RefreshToken": "refresh-token-2", "ExpiresIn": 3600}`,
	})

	id := auth.Identity{UID: testUID, AccessToken: testAccessToken, TokenType: "Bearer"}
	data, err := f.broker.Refresh(context.Background(), id, testRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "access-token-2", data.AccessToken)
	require.Equal(t, "refresh-token-2", data.RefreshToken)

	calls := f.sender.CallsTo(http.MethodPost, "/auth/refresh")
	require.Len(t, calls, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Payload, &payload))
	require.Equal(t, testUID, payload["UID"])
	require.Equal(t, testRefreshToken, payload["RefreshToken"])
	require.Equal(t, "refresh_token", payload["GrantType"])
	require.Equal(t, "token", payload["ResponseType"])
	require.Equal(t, "https://protonmail.ch", payload["RedirectURI"])
}

func TestLogout_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodDelete, "/auth", restclientfakes.Reply{Status: http.StatusOK, Body: `{"Code": 1000}`})

	id := auth.Identity{UID: testUID, AccessToken: testAccessToken, TokenType: "Bearer"}
	require.NoError(t, f.broker.Logout(context.Background(), id))

	calls := f.sender.CallsTo(http.MethodDelete, "/auth")
	require.Len(t, calls, 1)
	require.Equal(t, testUID, calls[0].Header.Get("x-pm-uid"))
	require.Equal(t, "Bearer "+testAccessToken, calls[0].Header.Get("Authorization"))
}

func TestLogout_TransportFault(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.Respond(http.MethodDelete, "/auth", restclientfakes.Reply{
		Err: &restclient.Error{},
	})

	id := auth.Identity{UID: testUID, AccessToken: testAccessToken, TokenType: "Bearer"}
	err := f.broker.Logout(context.Background(), id)

	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	require.Zero(t, authErr.HTTPStatus)
}
