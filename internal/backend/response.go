package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CallRef names a function in another module.
type CallRef struct {
	Module   string `json:"module"`
	Function string `json:"function"`
}

func (r CallRef) String() string {
	return r.Module + "." + r.Function
}

// CallGraph is the dependency neighbourhood of a function. A nil slice means
// the backend did not report that direction; an empty one means it has none.
type CallGraph struct {
	CalledBy []CallRef `json:"called_by,omitempty"`
	CallsTo  []CallRef `json:"calls_to,omitempty"`
}

// Response is a decoded analysis answer.
type Response struct {
	// Result is the call graph, or nil when the body has no "result" object.
	Result *CallGraph
	// RawResult is the "result" member exactly as sent.
	RawResult json.RawMessage
	// Raw is the whole response body.
	Raw json.RawMessage
}

// DecodeResponse parses a response body. A body without a "result" member is
// valid and yields a nil Result.
func DecodeResponse(body []byte) (*Response, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	resp := &Response{Raw: json.RawMessage(bytes.TrimSpace(body))}
	raw, ok := envelope["result"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return resp, nil
	}
	resp.RawResult = raw

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return resp, nil
	}
	var graph CallGraph
	if err := json.Unmarshal(raw, &graph); err != nil {
		return nil, fmt.Errorf("decode call graph: %w", err)
	}
	resp.Result = &graph
	return resp, nil
}
