package engine

import (
	"context"
	"log/slog"
	"time"

	"promptgate/pkg/api"
	"promptgate/pkg/predict"
)

// Predict runs a fresh module of the requested kind, or a compiled module
// when CompiledModuleID is set, and returns the declared output fields.
func (e *Engine) Predict(ctx context.Context, req api.PredictRequest) (resp *api.PredictResponse, err error) {
	start := time.Now()
	subject := req.SignatureName
	defer func() {
		e.record("predict", subject, start, err, "")
	}()

	model, err := e.requireModel()
	if err != nil {
		return nil, err
	}
	def, err := e.requireSignature(req.SignatureName)
	if err != nil {
		return nil, err
	}

	var module *predict.Module
	if req.CompiledModuleID != "" {
		entry, ok := e.programs.Get(req.CompiledModuleID)
		if !ok {
			return nil, newError(ErrUnknownModule, nil, "compiled module %q not found", req.CompiledModuleID)
		}
		if entry.SignatureName != def.Name {
			slog.WarnContext(ctx, "Compiled module belongs to another signature",
				"module", entry.ID, "module_signature", entry.SignatureName, "signature", def.Name)
		}
		module = entry.Module
		subject = entry.ID
	} else {
		kind, err := predict.ParseKind(req.ModuleType)
		if err != nil {
			return nil, newError(ErrInvalidRequest, err, "predict %q", def.Name)
		}
		module = predict.New(def, kind)
	}

	if req.Inputs == nil {
		return nil, invalidRequest("inputs is required")
	}

	pred, err := e.newReasoner(model.Client).Run(ctx, module, req.Inputs)
	if err != nil {
		return nil, newError(ErrPrediction, err, "predict %q with %s", def.Name, model.Name)
	}

	outputs := make(map[string]any, len(module.Signature.Outputs))
	for _, f := range module.Signature.Outputs {
		if v, ok := pred.Outputs[f]; ok {
			outputs[f] = v
		}
	}
	return &api.PredictResponse{Outputs: outputs, Reasoning: pred.Reasoning}, nil
}
