package api

import "context"

// Service is the set of operations every transport exposes.
type Service interface {
	Configure(ctx context.Context, req ConfigureRequest) (*ConfigureResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error)
	Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error)
	Health(ctx context.Context) *HealthResponse
}

// Operation names shared by transports that multiplex one connection.
const (
	OpConfigure = "configure"
	OpRegister  = "register"
	OpPredict   = "predict"
	OpOptimize  = "optimize"
	OpHealth    = "health"
)
