package server

import (
	"encoding/json"

	"poke-mcp/internal/tool"
)

// CallRequest is the transport-agnostic request envelope. Both transports
// frame this shape: standard-stream as one JSON object per line,
// streaming-http as the POST body.
type CallRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// resultEnvelope and errorEnvelope are the two response shapes. A caller
// distinguishes them by the presence of the "error" key, so the two types
// stay disjoint rather than sharing a struct with omitempty fields.
type resultEnvelope struct {
	Result any `json:"result"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// envelopeFor converts a dispatch result into its wire shape.
func envelopeFor(res tool.Result) any {
	if res.Failed() {
		return errorEnvelope{Error: res.Failure.Message}
	}
	return resultEnvelope{Result: res.Payload}
}

// catalogTool is the wire shape of one tool listing entry.
type catalogTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}
