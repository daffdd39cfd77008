package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"promptgate/pkg/api"
	"promptgate/pkg/metric"
	"promptgate/pkg/optimize"
	"promptgate/pkg/predict"
)

// Optimize compiles a chain-of-thought module for the signature from the
// training data and registers it under a fresh identifier. The registry is
// only touched after compilation succeeds.
func (e *Engine) Optimize(ctx context.Context, req api.OptimizeRequest) (resp *api.OptimizeResponse, err error) {
	start := time.Now()
	defer func() {
		detail := ""
		if resp != nil {
			detail = fmt.Sprintf("module=%s bootstraps=%d", resp.ModuleID, resp.NumBootstraps)
		}
		e.record("optimize", req.SignatureName, start, err, detail)
	}()

	model, err := e.requireModel()
	if err != nil {
		return nil, err
	}
	def, err := e.requireSignature(req.SignatureName)
	if err != nil {
		return nil, err
	}

	metricName := req.Metric
	if metricName == "" {
		metricName = metric.ExactMatch
	}
	score, err := e.metrics.Resolve(metricName)
	if err != nil {
		return nil, err
	}

	factory, err := e.optimizers.Get(req.Optimizer)
	if err != nil {
		return nil, err
	}

	maxBootstraps := e.system.DefaultMaxBootstraps
	if req.MaxBootstraps != nil {
		maxBootstraps = *req.MaxBootstraps
	}
	trainset := make([]predict.Example, len(req.TrainData))
	for i, row := range req.TrainData {
		trainset[i] = predict.Example(row)
	}
	if err := optimize.Validate(def, trainset, maxBootstraps); err != nil {
		return nil, newError(ErrOptimization, invalidRequestError{err}, "optimize %q", def.Name)
	}

	student := predict.New(def, predict.KindChainOfThought)
	opt := factory(e.newReasoner(model.Client), optimize.SettingsFrom(e.system))

	compiled, n, err := opt.Compile(ctx, student, score, trainset, maxBootstraps)
	if err != nil {
		return nil, newError(ErrOptimization, err, "optimize %q", def.Name)
	}
	if compiled == nil {
		return nil, newError(ErrOptimization, errors.New("optimizer returned no module"), "optimize %q", def.Name)
	}

	entry := e.programs.Add(def.Name, compiled, n)
	slog.InfoContext(ctx, "Module compiled",
		"module", entry.ID,
		"signature", def.Name,
		"metric", metricName,
		"bootstraps", n,
		"demos", len(compiled.Demos),
	)

	return &api.OptimizeResponse{
		Status:        "optimized",
		ModuleID:      entry.ID,
		NumBootstraps: n,
		NumDemos:      len(entry.Module.Demos),
	}, nil
}
