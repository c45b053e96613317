package dispatcher

import (
	"encoding/json"
)

// Envelope is the normalized outcome of a tool invocation. Exactly one
// variant applies: success with result fields, or failure with a message.
// Serializing an envelope never fails.
type Envelope struct {
	Success bool
	Fields  map[string]any
	Err     string
}

// Succeed builds a success envelope from a handler's JSON output. An
// object has its fields merged beside "success"; any other value is placed
// under a "result" field.
func Succeed(output json.RawMessage) Envelope {
	env := Envelope{Success: true}
	if len(output) == 0 {
		return env
	}

	var fields map[string]any
	if err := json.Unmarshal(output, &fields); err == nil {
		delete(fields, "success")
		env.Fields = fields
		return env
	}

	var value any
	if err := json.Unmarshal(output, &value); err == nil {
		env.Fields = map[string]any{"result": value}
		return env
	}
	env.Fields = map[string]any{"result": string(output)}
	return env
}

// Fail builds a failure envelope with the given message.
func Fail(message string) Envelope {
	return Envelope{Success: false, Err: message}
}

// JSON renders the envelope wire shape: {"success":true,...fields} or
// {"success":false,"error":msg}.
func (e Envelope) JSON() json.RawMessage {
	body := make(map[string]any, len(e.Fields)+2)
	if e.Success {
		for k, v := range e.Fields {
			body[k] = v
		}
		body["success"] = true
	} else {
		body["success"] = false
		body["error"] = e.Err
	}

	data, err := json.Marshal(body)
	if err != nil {
		// A result field that cannot marshal degrades to a failure
		// envelope rather than a broken wire message.
		data, _ = json.Marshal(map[string]any{
			"success": false,
			"error":   "result serialization failed: " + err.Error(),
		})
	}
	return data
}

// TextContent is one content block of a call response.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the transport-level response shape for a tool call:
// {"content":[{"type":"text","text":<JSON envelope>}]}.
type CallResult struct {
	Content []TextContent `json:"content"`
}

// Result wraps the envelope in the transport content shape.
func (e Envelope) Result() CallResult {
	return CallResult{
		Content: []TextContent{{Type: "text", Text: string(e.JSON())}},
	}
}
