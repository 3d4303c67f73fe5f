package session

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Persisted session format versions. Version 1 predates expiration tracking;
// version 2 adds ExpirationTime. Versions outside this range are rejected so
// a dump written by a newer release is never partially applied.
const (
	dumpVersionLegacy  = 1
	dumpVersionCurrent = 2
)

// Dump is the versioned on-disk representation of a session. Empty optional
// fields are omitted on write and tolerated as missing on read.
type Dump struct {
	Version        int    `json:"Version"`
	UID            string `json:"Uid,omitempty"`
	AccessToken    string `json:"AccessToken,omitempty"`
	TokenType      string `json:"TokenType,omitempty"`
	ExpirationTime int64  `json:"ExpirationTime,omitempty"`
	RefreshToken   string `json:"RefreshToken,omitempty"`
	PasswordMode   int    `json:"PasswordMode,omitempty"`
	Scope          string `json:"Scope,omitempty"`
}

// Dump serializes the current session, its refresh token, password mode and
// scope into the current persisted format.
func (s *Session) Dump() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, errors.Wrap(ErrNothingToSave, "[Session.Dump]")
	}

	dump := Dump{
		Version:      dumpVersionCurrent,
		UID:          s.data.uid,
		AccessToken:  s.data.accessToken,
		TokenType:    s.data.tokenType,
		RefreshToken: s.data.refreshToken,
		PasswordMode: s.data.passwordMode,
		Scope:        s.data.scope,
	}
	if !s.data.expiresAt.IsZero() {
		dump.ExpirationTime = s.data.expiresAt.Unix()
	}

	encoded, err := json.Marshal(dump)
	if err != nil {
		return nil, errors.Wrap(err, "[Session.Dump] serialize")
	}
	return encoded, nil
}

// Load replaces the session with the one recorded in dump. A legacy
// (version 1) dump carries no expiration, so the restored session reports
// itself expired until the first Refresh; two-factor flags are never restored
// from persistence. A malformed or unrecognized payload leaves the existing
// session untouched.
func (s *Session) Load(dump []byte) error {
	if dump == nil {
		return errors.Wrap(ErrNilDump, "[Session.Load]")
	}

	var parsed Dump
	if err := json.Unmarshal(dump, &parsed); err != nil {
		return errors.Wrapf(ErrMalformedDump, "[Session.Load] %v", err)
	}
	if parsed.Version < dumpVersionLegacy || parsed.Version > dumpVersionCurrent {
		return errors.Wrapf(ErrMalformedDump, "[Session.Load] unrecognized version %d", parsed.Version)
	}

	data := &sessionData{
		uid:          parsed.UID,
		accessToken:  parsed.AccessToken,
		tokenType:    parsed.TokenType,
		refreshToken: parsed.RefreshToken,
		passwordMode: parsed.PasswordMode,
		scope:        parsed.Scope,
	}
	if parsed.Version >= dumpVersionCurrent && parsed.ExpirationTime > 0 {
		data.expiresAt = time.Unix(parsed.ExpirationTime, 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}
