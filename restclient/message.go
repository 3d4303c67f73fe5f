package restclient

import (
	"encoding/json"
	"net/http"
)

// API result codes shared by every Proton endpoint.
const (
	CodeSuccess                   = 1000
	CodeSuccessMulti              = 1001
	CodeInvalidCredentials        = 8002
	CodeHumanVerificationRequired = 9001
)

// Message is a typed request/response pair that the Client knows how to send.
// Implementations describe the endpoint and carry the decoded reply.
type Message interface {
	Method() string
	Endpoint() string
	// Header returns the mutable header set attached to the outgoing request.
	Header() http.Header
	// RequestBody returns the payload to JSON-encode, or ok=false when the
	// request has no body.
	RequestBody() (payload any, ok bool)
	// ResponseBody returns the destination the reply is decoded into, or nil
	// when the body should be discarded.
	ResponseBody() any
}

// CommonResponse is the envelope every API reply carries. Response payload
// structs embed it so callers can check the API result code.
type CommonResponse struct {
	Code    int             `json:"Code"`
	Error   string          `json:"Error,omitempty"`
	Details json.RawMessage `json:"Details,omitempty"`
}

// Success reports whether the API accepted the request.
func (r CommonResponse) Success() bool {
	return r.Code == CodeSuccess || r.Code == CodeSuccessMulti
}

// CustomMessage is a Message for an arbitrary endpoint with a typed response
// and an optional JSON payload.
type CustomMessage[TResp any] struct {
	method   string
	endpoint string
	header   http.Header
	payload  any
	hasBody  bool

	// Response holds the decoded reply after a successful Send.
	Response TResp
}

// NewMessage creates a body-less message for the given method and endpoint.
func NewMessage[TResp any](method, endpoint string) *CustomMessage[TResp] {
	return &CustomMessage[TResp]{
		method:   method,
		endpoint: endpoint,
		header:   make(http.Header),
	}
}

// NewPayloadMessage creates a message that sends payload as a JSON body.
func NewPayloadMessage[TResp any](method, endpoint string, payload any) *CustomMessage[TResp] {
	return &CustomMessage[TResp]{
		method:   method,
		endpoint: endpoint,
		header:   make(http.Header),
		payload:  payload,
		hasBody:  true,
	}
}

func (m *CustomMessage[TResp]) Method() string { return m.method }

func (m *CustomMessage[TResp]) Endpoint() string { return m.endpoint }

func (m *CustomMessage[TResp]) Header() http.Header { return m.header }

func (m *CustomMessage[TResp]) RequestBody() (any, bool) { return m.payload, m.hasBody }

func (m *CustomMessage[TResp]) ResponseBody() any { return &m.Response }
