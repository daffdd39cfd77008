package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
	"promptgate/pkg/llm"
)

// Configure builds a client for the requested provider and model and makes
// it the process-wide model. On failure the previous model stays in place.
func (e *Engine) Configure(ctx context.Context, req api.ConfigureRequest) (resp *api.ConfigureResponse, err error) {
	start := time.Now()
	defer func() {
		detail := ""
		if resp != nil {
			detail = "model=" + resp.Model
		}
		e.record("configure", req.Provider, start, err, detail)
	}()

	req.Provider = strings.TrimSpace(req.Provider)
	req.Model = strings.TrimSpace(req.Model)
	if req.Provider == "" || req.Model == "" {
		return nil, invalidRequest("provider and model are required")
	}

	opts, err := requestOptions(req)
	if err != nil {
		return nil, newError(ErrConfiguration, invalidRequestError{err}, "configure %s", req.Provider)
	}

	client, _, err := e.providers.New(llm.Request{
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
		BaseURL:  req.BaseURL,
		Defaults: e.defaultOptions(),
		Options:  opts,
	}, e.cfg.Load(), e.system)
	if err != nil {
		return nil, newError(ErrConfiguration, err, "configure %s", req.Provider)
	}

	m := &Model{
		Provider:     req.Provider,
		Name:         llm.QualifiedModel(req.Provider, req.Model),
		Client:       client,
		ConfiguredAt: time.Now(),
	}
	e.model.Set(m)
	slog.InfoContext(ctx, "Model configured", "provider", m.Provider, "model", m.Name)

	return &api.ConfigureResponse{Status: "configured", Model: m.Name, Provider: m.Provider}, nil
}

// defaultOptions are the generation settings used when neither the request
// nor the provider config sets them.
func (e *Engine) defaultOptions() llm.Options {
	temp := e.system.DefaultTemperature
	return llm.Options{Temperature: &temp, MaxTokens: e.system.DefaultMaxTokens}
}

// requestOptions merges the free options object with the explicit request
// fields, which win.
func requestOptions(req api.ConfigureRequest) (llm.Options, error) {
	opts, err := llm.DecodeOptions(req.Options)
	if err != nil {
		return llm.Options{}, err
	}

	if req.MaxTokens != nil {
		if *req.MaxTokens <= 0 {
			return llm.Options{}, fmt.Errorf("max_tokens must be positive")
		}
		opts.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		t := *req.Temperature
		opts.Temperature = &t
	}
	return opts, nil
}

// ConfigureDefault configures spec at startup. Failures are logged only.
func (e *Engine) ConfigureDefault(ctx context.Context, spec *config.ModelSpec) {
	if spec == nil {
		return
	}
	if _, err := e.Configure(ctx, api.ConfigureRequest{
		Provider: spec.Provider,
		Model:    spec.Model,
		APIKey:   spec.APIKey,
	}); err != nil {
		slog.WarnContext(ctx, "Default model not configured", "provider", spec.Provider, "model", spec.Model, "error", err)
	}
}
