// Package mcp exposes a dispatcher's tools over the Model Context
// Protocol using github.com/felixgeelhaar/mcp-go.
package mcp

import (
	"context"
	"encoding/json"

	mcpgo "github.com/felixgeelhaar/mcp-go"

	"github.com/provisionkit/provision-go/application/dispatcher"
)

// Server wraps an MCP server around a dispatcher. Every tool call is
// answered with the dispatcher's normalized envelope; the MCP layer never
// observes a handler error.
type Server struct {
	srv  *mcpgo.Server
	disp *dispatcher.Dispatcher
	info mcpgo.ServerInfo
}

// ServerConfig configures a provisioning MCP server.
type ServerConfig struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Dispatcher routes and normalizes tool calls.
	Dispatcher *dispatcher.Dispatcher

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string
}

// NewServer creates an MCP server exposing the dispatcher's tools.
func NewServer(cfg ServerConfig) *Server {
	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &Server{
		srv:  mcpgo.NewServer(info, opts...),
		disp: cfg.Dispatcher,
		info: info,
	}

	if cfg.Dispatcher != nil {
		s.registerTools()
	}

	return s
}

// registerTools registers every dispatcher tool with the MCP server.
func (s *Server) registerTools() {
	for _, desc := range s.disp.List() {
		s.registerTool(desc.Name, desc.Description)
	}
}

// registerTool wires one named tool through the dispatcher.
func (s *Server) registerTool(name, description string) {
	s.srv.Tool(name).
		Description(description).
		Handler(s.toolHandler(name))
}

// toolHandler returns the transport handler for one tool. The handler
// returns the bare JSON envelope; mcp-go wraps that string into the
// protocol's content block itself.
func (s *Server) toolHandler(name string) func(context.Context, json.RawMessage) (string, error) {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		env := s.disp.Invoke(ctx, name, input)
		return string(env.JSON()), nil
	}
}

// Server returns the underlying mcp-go server.
func (s *Server) Server() *mcpgo.Server {
	return s.srv
}

// serveMiddleware returns the request middleware installed on every
// transport: panic recovery plus per-request IDs.
func serveMiddleware() mcpgo.ServeOption {
	return mcpgo.WithMiddleware(mcpgo.Recover(), mcpgo.RequestID())
}

// ServeStdio runs the server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context, opts ...mcpgo.ServeOption) error {
	serveOpts := append([]mcpgo.ServeOption{serveMiddleware()}, opts...)
	return mcpgo.ServeStdio(ctx, s.srv, serveOpts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (s *Server) ServeHTTP(ctx context.Context, addr string, opts ...mcpgo.HTTPOption) error {
	return mcpgo.ServeHTTPWithMiddleware(ctx, s.srv, addr, opts, serveMiddleware())
}
