// Package engine holds the server state (the configured model, the
// signature and module registries) and implements the four operations
// every transport exposes.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
	"promptgate/pkg/llm"
	"promptgate/pkg/metric"
	"promptgate/pkg/monitor"
	"promptgate/pkg/optimize"
	"promptgate/pkg/predict"
	"promptgate/pkg/program"
	"promptgate/pkg/signature"
)

// ReasonerFactory binds a Reasoner to a configured client.
type ReasonerFactory func(client llm.LLMClient) predict.Reasoner

// Engine is the server context shared by every handler.
type Engine struct {
	cfg    atomic.Pointer[config.Config]
	system *config.SystemConfig

	model      ModelHolder
	signatures *signature.Registry
	programs   *program.Registry
	metrics    *metric.Resolver
	optimizers *optimize.Registry
	providers  *llm.Registry

	newReasoner ReasonerFactory
	monitor     monitor.Monitor
}

var _ api.Service = (*Engine)(nil)

// Option customizes an Engine.
type Option func(*Engine)

// WithProviders replaces the default provider registry.
func WithProviders(r *llm.Registry) Option {
	return func(e *Engine) { e.providers = r }
}

// WithOptimizers replaces the default optimizer registry.
func WithOptimizers(r *optimize.Registry) Option {
	return func(e *Engine) { e.optimizers = r }
}

// WithReasonerFactory replaces the LM-backed reasoner.
func WithReasonerFactory(f ReasonerFactory) Option {
	return func(e *Engine) { e.newReasoner = f }
}

// WithMonitor sets the event sink.
func WithMonitor(m monitor.Monitor) Option {
	return func(e *Engine) { e.monitor = m }
}

// New builds an engine. cfg may be nil; its metric expressions must compile.
func New(cfg *config.Config, system *config.SystemConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if system == nil {
		system = config.DefaultSystemConfig()
	}
	metrics, err := metric.NewResolver(cfg.Metrics)
	if err != nil {
		return nil, newError(ErrConfiguration, err, "load metrics")
	}

	e := &Engine{
		system:     system,
		signatures: signature.NewRegistry(),
		programs:   program.NewRegistry(),
		metrics:    metrics,
		optimizers: optimize.NewRegistry(),
		providers:  llm.DefaultRegistry(),
		monitor:    monitor.Nop{},
	}
	e.newReasoner = func(client llm.LLMClient) predict.Reasoner {
		return predict.NewLMReasoner(client, time.Duration(e.system.LLMTimeoutMs)*time.Millisecond)
	}
	e.cfg.Store(cfg)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reload swaps the business config. Metric expressions are replaced only
// if all of them compile.
func (e *Engine) Reload(cfg *config.Config) error {
	if err := e.metrics.Replace(cfg.Metrics); err != nil {
		return newError(ErrConfiguration, err, "reload metrics")
	}
	e.cfg.Store(cfg)
	return nil
}

// Model returns the configured model or nil.
func (e *Engine) Model() *Model {
	return e.model.Get()
}

// Signatures returns the registered signature definitions.
func (e *Engine) Signatures() *signature.Registry { return e.signatures }

// Programs returns the compiled module registry.
func (e *Engine) Programs() *program.Registry { return e.programs }

// Metrics returns the metric resolver, including custom metrics from config.
func (e *Engine) Metrics() *metric.Resolver { return e.metrics }

// Health reports what the engine currently holds.
func (e *Engine) Health(context.Context) *api.HealthResponse {
	resp := &api.HealthResponse{
		Status:     "ok",
		Signatures: e.signatures.Len(),
		Modules:    e.programs.Len(),
	}
	if m := e.model.Get(); m != nil {
		resp.Model = m.Name
	}
	return resp
}

// record emits one monitor event for an operation.
func (e *Engine) record(op, subject string, start time.Time, err error, detail string) {
	status := monitor.StatusOK
	if err != nil {
		status, _ = Classify(err)
		detail = err.Error()
	}
	e.monitor.OnEvent(monitor.Event{
		Timestamp: time.Now(),
		Operation: op,
		Subject:   subject,
		Status:    status,
		Duration:  time.Since(start),
		Detail:    detail,
	})
}

// requireModel fails fast while no model is configured.
func (e *Engine) requireModel() (*Model, error) {
	m := e.model.Get()
	if m == nil {
		return nil, newError(ErrUnconfiguredModel, nil, "no language model configured; call /configure first")
	}
	return m, nil
}

func (e *Engine) requireSignature(name string) (signature.Definition, error) {
	if name == "" {
		return signature.Definition{}, invalidRequest("signature_name is required")
	}
	def, ok := e.signatures.Get(name)
	if !ok {
		return signature.Definition{}, newError(ErrUnknownSignature, nil, "signature %q not found", name)
	}
	return def, nil
}
