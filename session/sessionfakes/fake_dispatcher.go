package sessionfakes

import (
	"context"
	"sync"

	"github.com/eppie-io/go-proton-client/restclient"
	"github.com/eppie-io/go-proton-client/session"
)

var _ session.Dispatcher = (*FakeDispatcher)(nil)

// FakeDispatcher is a canned-response Dispatcher that records every message
// it was handed.
type FakeDispatcher struct {
	mu sync.Mutex

	SendStatus int
	SendErr    error
	SendFunc   func(ctx context.Context, msg restclient.Message) (int, error)
	SendCalls  []restclient.Message
}

func (f *FakeDispatcher) Send(ctx context.Context, msg restclient.Message) (int, error) {
	f.mu.Lock()
	f.SendCalls = append(f.SendCalls, msg)
	sendFunc := f.SendFunc
	f.mu.Unlock()

	if sendFunc != nil {
		return sendFunc(ctx, msg)
	}
	return f.SendStatus, f.SendErr
}

// CallCount returns the number of recorded Send invocations.
func (f *FakeDispatcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SendCalls)
}
