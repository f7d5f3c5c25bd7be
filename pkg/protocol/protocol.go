// Package protocol defines the wire envelopes of the metaforge endpoint:
// one JSON request per line (or per WebSocket message), one correlated
// JSON response back. The same envelopes ride every transport.
package protocol

// Request is one inbound action invocation. ID is the caller's
// correlation key and is echoed verbatim on the response; ObjectType and
// Parameters are action-specific.
type Request struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ObjectType string         `json:"objectType,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Response is the outcome of one request. Exactly one of Data or Error is
// meaningful: Data on success, Error otherwise. ProcessingTimeMs is always
// set, zero included, so callers can account for fast calls.
type Response struct {
	ID               string `json:"id"`
	Success          bool   `json:"success"`
	Data             any    `json:"data,omitempty"`
	Error            string `json:"error,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}
