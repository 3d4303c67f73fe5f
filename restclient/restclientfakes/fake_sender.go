// Package restclientfakes provides a hand-written fake for the restclient
// Sender interface.
package restclientfakes

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/eppie-io/go-proton-client/restclient"
)

var _ restclient.Sender = (*FakeSender)(nil)

// Reply is a canned response for one endpoint.
type Reply struct {
	Status int
	Body   string
	Err    error
}

// SendCall records one dispatched message along with its encoded payload.
type SendCall struct {
	Method   string
	Endpoint string
	Header   http.Header
	Payload  []byte
}

// FakeSender routes messages to canned per-endpoint replies, decoding the
// reply body into the message the way the real client does.
type FakeSender struct {
	mu      sync.Mutex
	replies map[string]Reply

	SendCalls []SendCall
}

// NewFakeSender creates an empty FakeSender; endpoints without a reply fail
// with status 404.
func NewFakeSender() *FakeSender {
	return &FakeSender{replies: make(map[string]Reply)}
}

// Respond registers the reply for method+endpoint.
func (f *FakeSender) Respond(method, endpoint string, reply Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+endpoint] = reply
}

func (f *FakeSender) Send(_ context.Context, msg restclient.Message) (int, error) {
	call := SendCall{
		Method:   msg.Method(),
		Endpoint: msg.Endpoint(),
		Header:   msg.Header().Clone(),
	}
	if payload, ok := msg.RequestBody(); ok {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		call.Payload = encoded
	}

	f.mu.Lock()
	f.SendCalls = append(f.SendCalls, call)
	reply, ok := f.replies[msg.Method()+" "+msg.Endpoint()]
	f.mu.Unlock()

	if !ok {
		return http.StatusNotFound, &restclient.Error{StatusCode: http.StatusNotFound}
	}
	if reply.Err != nil {
		return reply.Status, reply.Err
	}
	if reply.Status >= http.StatusOK && reply.Status < http.StatusMultipleChoices {
		if sink := msg.ResponseBody(); sink != nil && reply.Body != "" {
			if err := json.Unmarshal([]byte(reply.Body), sink); err != nil {
				return reply.Status, &restclient.Error{StatusCode: reply.Status, Body: []byte(reply.Body)}
			}
		}
		return reply.Status, nil
	}
	return reply.Status, &restclient.Error{StatusCode: reply.Status, Body: []byte(reply.Body)}
}

// CallsTo returns the recorded calls for method+endpoint.
func (f *FakeSender) CallsTo(method, endpoint string) []SendCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var calls []SendCall
	for _, call := range f.SendCalls {
		if call.Method == method && call.Endpoint == endpoint {
			calls = append(calls, call)
		}
	}
	return calls
}
