package api

import "context"

// Channel is an optional transport started next to the REST API.
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
}

// ChannelContext lets a channel hand decoded calls back to the gateway.
type ChannelContext interface {
	// Dispatch runs op with a JSON payload and returns the response value
	// or an error classified by the engine.
	Dispatch(ctx context.Context, channelID, op string, payload []byte) (any, error)
}
