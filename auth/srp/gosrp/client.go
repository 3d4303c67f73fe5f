// Package gosrp adapts the ProtonMail SRP implementation to the srp.Client
// interface.
package gosrp

import (
	"encoding/base64"

	protonsrp "github.com/ProtonMail/go-srp"
	"github.com/pkg/errors"

	"github.com/eppie-io/go-proton-client/auth/srp"
)

const proofBitLength = 2048

var _ srp.Client = (*Client)(nil)

// Client computes password proofs with github.com/ProtonMail/go-srp.
type Client struct{}

func New() *Client {
	return &Client{}
}

func (Client) Proofs(username, password string, challenge srp.Challenge) (*srp.Proofs, error) {
	auth, err := protonsrp.NewAuth(challenge.Version, username, []byte(password), challenge.Salt, challenge.Modulus, challenge.ServerEphemeral)
	if err != nil {
		return nil, errors.Wrap(err, "[gosrp.Proofs] prepare exchange")
	}

	proofs, err := auth.GenerateProofs(proofBitLength)
	if err != nil {
		return nil, errors.Wrap(err, "[gosrp.Proofs] generate proofs")
	}

	return &srp.Proofs{
		ClientEphemeral:     base64.StdEncoding.EncodeToString(proofs.ClientEphemeral),
		ClientProof:         base64.StdEncoding.EncodeToString(proofs.ClientProof),
		ExpectedServerProof: base64.StdEncoding.EncodeToString(proofs.ExpectedServerProof),
	}, nil
}
