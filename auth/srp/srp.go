// Package srp defines the boundary to the secure-remote-password computation.
// The group arithmetic itself lives behind the Client interface; this package
// only carries the challenge and proof values exchanged with the API.
package srp

import "errors"

var (
	// ErrInvalidChallenge is returned when the server challenge is missing
	// required material.
	ErrInvalidChallenge = errors.New("invalid srp challenge")

	// ErrServerProofMismatch is returned when the server fails to prove
	// knowledge of the shared secret.
	ErrServerProofMismatch = errors.New("server proof mismatch")
)

// Challenge is the material the server publishes for one login attempt.
type Challenge struct {
	Modulus         string
	ServerEphemeral string
	Salt            string
	Version         int
}

// Proofs is the client side of the password proof. ExpectedServerProof is the
// value the server must echo back to prove it also knows the verifier.
type Proofs struct {
	ClientEphemeral     string
	ClientProof         string
	ExpectedServerProof string
}

// Client computes password proofs without ever exposing the password to the
// network.
type Client interface {
	// Proofs derives the client proof for the given challenge.
	Proofs(username, password string, challenge Challenge) (*Proofs, error)
}

// VerifyServerProof checks the proof the server returned after a successful
// exchange. An empty expected value means the client implementation does not
// support mutual verification and the check is skipped.
func VerifyServerProof(p *Proofs, serverProof string) error {
	if p == nil || p.ExpectedServerProof == "" {
		return nil
	}
	if p.ExpectedServerProof != serverProof {
		return ErrServerProofMismatch
	}
	return nil
}
