package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eppie-io/go-proton-client/auth"
	"github.com/eppie-io/go-proton-client/session"
)

func TestDump_NoSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.session.Dump()
	require.ErrorIs(t, err, session.ErrNothingToSave)
}

func TestDump_WritesCurrentVersion(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, authData(testScope))

	dump, err := f.session.Dump()
	require.NoError(t, err)

	var parsed session.Dump
	require.NoError(t, json.Unmarshal(dump, &parsed))
	require.Equal(t, 2, parsed.Version)
	require.Equal(t, testUID, parsed.UID)
	require.Equal(t, testAccessToken, parsed.AccessToken)
	require.Equal(t, testTokenType, parsed.TokenType)
	require.Equal(t, testRefreshToken, parsed.RefreshToken)
	require.Equal(t, 1, parsed.PasswordMode)
	require.Equal(t, testScope, parsed.Scope)
	require.Equal(t, f.now.Add(time.Hour).Unix(), parsed.ExpirationTime)
}

func TestLoad_NilDump(t *testing.T) {
	f := setupTestFixture(t)

	err := f.session.Load(nil)
	require.ErrorIs(t, err, session.ErrNilDump)
}

func TestLoad_MalformedDump(t *testing.T) {
	tests := []struct {
		name string
		dump string
	}{
		{"empty", ""},
		{"not json", "not json"},
		{"unknown version", `{"Version": 99, "Uid": "uid-001"}`},
		{"zero version", `{"Uid": "uid-001"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.login(t, authData(testScope))

			err := f.session.Load([]byte(tt.dump))
			require.ErrorIs(t, err, session.ErrMalformedDump)

			// A rejected payload leaves the existing session untouched.
			require.Equal(t, testUID, f.session.UID())
		})
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, authData(testScope))

	dump, err := f.session.Dump()
	require.NoError(t, err)

	restored := setupTestFixture(t)
	require.NoError(t, restored.session.Load(dump))

	require.Equal(t, testUID, restored.session.UID())
	require.Equal(t, testScope, restored.session.Scope())
	require.Equal(t, 1, restored.session.PasswordMode())
	require.Equal(t, f.session.ExpiresAt().Unix(), restored.session.ExpiresAt().Unix())

	expired, err := restored.session.IsExpired(0)
	require.NoError(t, err)
	require.False(t, expired)
}

func TestLoad_LegacyVersionIsExpired(t *testing.T) {
	f := setupTestFixture(t)

	dump := `{
		"Version": 1,
		"Uid": "uid-001",
		"AccessToken": "access-token-1",
		"TokenType": "Bearer",
		"RefreshToken": "refresh-token-1",
		"PasswordMode": 1,
		"Scope": "full mail"
	}`
	require.NoError(t, f.session.Load([]byte(dump)))

	require.Equal(t, testUID, f.session.UID())
	require.True(t, f.session.ExpiresAt().IsZero())

	// No expiration on record means the token cannot be trusted.
	expired, err := f.session.IsExpired(0)
	require.NoError(t, err)
	require.True(t, expired)
}

func TestLoad_NeverRestoresTwoFactorFlags(t *testing.T) {
	f := setupTestFixture(t)

	data := authData("twofactor")
	data.TwoFactor = auth.TwoFactorInfo{Enabled: 1, TOTP: 1}
	f.login(t, data)

	dump, err := f.session.Dump()
	require.NoError(t, err)

	restored := setupTestFixture(t)
	require.NoError(t, restored.session.Load(dump))

	require.False(t, restored.session.IsTwoFactor())
	require.False(t, restored.session.IsTOTP())
}
