package engine

import (
	"context"
	"strings"
	"time"

	"promptgate/pkg/api"
	"promptgate/pkg/signature"
)

// Register parses a compact signature and stores it under req.Name,
// replacing any previous definition.
func (e *Engine) Register(ctx context.Context, req api.RegisterRequest) (resp *api.RegisterResponse, err error) {
	start := time.Now()
	defer func() {
		detail := ""
		if resp != nil {
			detail = "fields=" + strings.Join(resp.Fields, ",")
		}
		e.record("register", req.Name, start, err, detail)
	}()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidRequest("name is required")
	}

	def, err := signature.Parse(req.Signature, req.Instructions)
	if err != nil {
		return nil, newError(ErrSignatureParse, err, "register %q", name)
	}
	def = e.signatures.Put(name, def)

	return &api.RegisterResponse{
		Status:       "registered",
		Name:         def.Name,
		Fields:       def.Fields(),
		InputFields:  def.Inputs,
		OutputFields: def.Outputs,
		Instructions: def.Instructions,
	}, nil
}
