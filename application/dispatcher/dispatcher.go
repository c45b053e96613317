// Package dispatcher routes named tool calls to registered handlers and
// normalizes every outcome into a success/failure envelope. No handler
// error, panic, or unknown name ever crosses the dispatch boundary as
// anything but a well-formed envelope; the embedding transport never sees
// a crashed call.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/provisionkit/provision-go/domain/tool"
	"github.com/provisionkit/provision-go/infrastructure/logging"
	"github.com/provisionkit/provision-go/infrastructure/resilience"
	"github.com/provisionkit/provision-go/infrastructure/storage/memory"
	"github.com/provisionkit/provision-go/infrastructure/telemetry"
)

// Descriptor describes a registered tool for capability discovery.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema tool.Schema `json:"inputSchema"`
}

// Dispatcher is a pure routing and normalization layer. It holds no
// business state and is safe to reuse across arbitrarily many sequential
// calls within one process lifetime.
type Dispatcher struct {
	registry tool.Registry
	metrics  *telemetry.MetricsProvider
	executor *resilience.Executor
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces the default in-memory registry.
func WithRegistry(r tool.Registry) Option {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithMetrics attaches a metrics provider.
func WithMetrics(mp *telemetry.MetricsProvider) Option {
	return func(d *Dispatcher) {
		d.metrics = mp
	}
}

// WithExecutor guards handler execution with bulkhead, timeout, and
// circuit breaker protection.
func WithExecutor(e *resilience.Executor) Option {
	return func(d *Dispatcher) {
		d.executor = e
	}
}

// New creates a dispatcher backed by an ordered in-memory registry.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: memory.NewToolRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a tool. Registering a name twice fails with
// tool.ErrToolExists.
func (d *Dispatcher) Register(t tool.Tool) error {
	if err := d.registry.Register(t); err != nil {
		return fmt.Errorf("register tool %q: %w", t.Name(), err)
	}
	return nil
}

// List returns descriptors for all registered tools in registration order.
func (d *Dispatcher) List() []Descriptor {
	tools := d.registry.List()
	descriptors := make([]Descriptor, len(tools))
	for i, t := range tools {
		descriptors[i] = Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}
	}
	return descriptors
}

// Registry exposes the underlying registry for transport adapters.
func (d *Dispatcher) Registry() tool.Registry {
	return d.registry
}

// Invoke routes a call to the named tool and returns its normalized
// envelope. It never returns an error: unknown names, schema violations,
// handler errors, and handler panics all become failure envelopes.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args json.RawMessage) Envelope {
	start := time.Now()
	id := uuid.NewString()

	env := d.invoke(ctx, name, args)

	duration := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordInvocation(ctx, name, env.Success, duration)
	}
	evt := logging.Info()
	if !env.Success {
		evt = logging.Warn().Add(logging.Str("error", env.Err))
	}
	evt.
		Add(logging.Component("dispatcher")).
		Add(logging.InvocationID(id)).
		Add(logging.ToolName(name)).
		Add(logging.Success(env.Success)).
		Add(logging.Duration(duration)).
		Msg("tool invocation completed")

	return env
}

func (d *Dispatcher) invoke(ctx context.Context, name string, args json.RawMessage) Envelope {
	t, ok := d.registry.Get(name)
	if !ok {
		return Fail(fmt.Sprintf("unknown tool %q", name))
	}

	if err := t.InputSchema().Validate(args); err != nil {
		return Fail(err.Error())
	}

	result, err := d.execute(ctx, t, args)
	if err != nil {
		return Fail(err.Error())
	}
	return Succeed(result.Output)
}

// execute runs the handler with panic recovery so a buggy handler cannot
// take down the server process.
func (d *Dispatcher) execute(ctx context.Context, t tool.Tool, args json.RawMessage) (result tool.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	if d.executor != nil {
		return d.executor.Execute(ctx, t, args)
	}
	return t.Execute(ctx, args)
}
