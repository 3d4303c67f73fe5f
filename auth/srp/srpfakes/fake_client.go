package srpfakes

import (
	"sync"

	"github.com/eppie-io/go-proton-client/auth/srp"
)

var _ srp.Client = (*FakeSRPClient)(nil)

// FakeSRPClient returns canned proofs and records every call.
type FakeSRPClient struct {
	lock sync.Mutex

	ProofsResult *srp.Proofs
	ProofsErr    error

	Calls []ProofsCall
}

type ProofsCall struct {
	Username  string
	Password  string
	Challenge srp.Challenge
}

func NewFakeSRPClient() *FakeSRPClient {
	return &FakeSRPClient{
		ProofsResult: &srp.Proofs{
			ClientEphemeral:     "fake-client-ephemeral",
			ClientProof:         "fake-client-proof",
			ExpectedServerProof: "fake-server-proof",
		},
	}
}

func (f *FakeSRPClient) Proofs(username, password string, challenge srp.Challenge) (*srp.Proofs, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.Calls = append(f.Calls, ProofsCall{Username: username, Password: password, Challenge: challenge})
	if f.ProofsErr != nil {
		return nil, f.ProofsErr
	}
	return f.ProofsResult, nil
}
