package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/provisionkit/provision-go/application/dispatcher"
	"github.com/provisionkit/provision-go/domain/tool"
)

func echoDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()

	echo := tool.NewBuilder("echo").
		WithDescription("Echo the message back").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"message": tool.String("Message to echo"),
		}, []string{"message"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			return tool.MarshalResult(map[string]any{"message": in.Message})
		}).
		MustBuild()

	d := dispatcher.New()
	if err := d.Register(echo); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return d
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerConfig{
		Name:       "test-server",
		Version:    "1.0.0",
		Dispatcher: echoDispatcher(t),
	})
	if srv.Server() == nil {
		t.Fatal("Server() returned nil")
	}
	tools := srv.Server().Tools()
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Errorf("Tools() = %v, want the registered echo tool", tools)
	}
}

func TestNewServer_NoDispatcher(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerConfig{Name: "test-server", Version: "1.0.0"})
	if srv.Server() == nil {
		t.Fatal("Server() returned nil")
	}
}

func TestServer_ToolHandlerReturnsBareEnvelope(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerConfig{
		Name:       "test-server",
		Version:    "1.0.0",
		Dispatcher: echoDispatcher(t),
	})

	out, err := srv.toolHandler("echo")(context.Background(), json.RawMessage(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("handler error = %v, want every outcome enveloped", err)
	}

	var wire map[string]any
	if err := json.Unmarshal([]byte(out), &wire); err != nil {
		t.Fatalf("handler output is not valid JSON: %v", err)
	}
	if wire["success"] != true || wire["message"] != "hi" {
		t.Errorf("handler output = %s, want the success envelope with merged fields", out)
	}
	// The transport builds the content block around the returned string;
	// the handler must not wrap the envelope itself.
	if _, ok := wire["content"]; ok {
		t.Errorf("handler output = %s, want the envelope without a content wrapper", out)
	}
}

func TestServer_ToolHandlerFailureEnvelope(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerConfig{
		Name:       "test-server",
		Version:    "1.0.0",
		Dispatcher: echoDispatcher(t),
	})

	out, err := srv.toolHandler("missing")(context.Background(), nil)
	if err != nil {
		t.Fatalf("handler error = %v, want failures enveloped instead", err)
	}

	var wire map[string]any
	if err := json.Unmarshal([]byte(out), &wire); err != nil {
		t.Fatalf("handler output is not valid JSON: %v", err)
	}
	if wire["success"] != false {
		t.Errorf("handler output = %s, want a failure envelope", out)
	}
	msg, _ := wire["error"].(string)
	if !strings.Contains(msg, "missing") {
		t.Errorf("error = %q, want it to name the unknown tool", msg)
	}
}
