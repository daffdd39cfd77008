package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
	"promptgate/pkg/engine"
	"promptgate/pkg/monitor"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v5"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GatewayManager owns the REST server and the extra channels, and routes
// channel calls to the service.
type GatewayManager struct {
	channels     map[string]api.Channel
	service      api.Service
	echo         *echo.Echo
	monitor      monitor.Monitor
	systemConfig *config.SystemConfig
	mu           sync.RWMutex
}

// NewGatewayManager creates an empty manager.
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels:     make(map[string]api.Channel),
		systemConfig: config.DefaultSystemConfig(),
	}
}

// Register adds a channel. A later channel with the same ID replaces the earlier one.
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel returns a registered channel.
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// Echo exposes the REST router, mainly for tests.
func (g *GatewayManager) Echo() *echo.Echo {
	return g.echo
}

func (g *GatewayManager) channelIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.channels))
	for id := range g.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartAll starts every registered channel, passing the manager as the
// channel context.
func (g *GatewayManager) StartAll() error {
	for _, id := range g.channelIDs() {
		c, _ := g.GetChannel(id)
		slog.Info("Starting channel", "channel", id)
		if err := c.Start(g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll stops every channel and the monitor.
func (g *GatewayManager) StopAll() {
	for _, id := range g.channelIDs() {
		c, _ := g.GetChannel(id)
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
	}
	if g.monitor != nil {
		if err := g.monitor.Stop(); err != nil {
			slog.Error("Error stopping monitor", "error", err)
		}
	}
}

// Serve runs the REST server until ctx is cancelled.
func (g *GatewayManager) Serve(ctx context.Context) error {
	sys := g.systemConfig
	slog.InfoContext(ctx, "Starting REST server", "addr", sys.Addr)
	sc := echo.StartConfig{
		Address: sys.Addr,
		BeforeServeFunc: func(srv *http.Server) error {
			if sys.ReadTimeoutMs > 0 {
				srv.ReadHeaderTimeout = time.Duration(sys.ReadTimeoutMs) * time.Millisecond
			}
			return nil
		},
	}
	if err := sc.Start(ctx, g.echo); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispatch implements api.ChannelContext: it decodes payload into the
// request type of op and runs the operation.
func (g *GatewayManager) Dispatch(ctx context.Context, channelID, op string, payload []byte) (any, error) {
	slog.DebugContext(ctx, "Dispatching channel call", "channel", channelID, "op", op)

	switch op {
	case api.OpConfigure:
		return dispatch(ctx, payload, g.service.Configure)
	case api.OpRegister:
		return dispatch(ctx, payload, g.service.Register)
	case api.OpPredict:
		return dispatch(ctx, payload, g.service.Predict)
	case api.OpOptimize:
		return dispatch(ctx, payload, g.service.Optimize)
	case api.OpHealth:
		return g.service.Health(ctx), nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", engine.ErrInvalidRequest, op)
	}
}

func dispatch[Req, Resp any](ctx context.Context, payload []byte, op func(context.Context, Req) (Resp, error)) (any, error) {
	var req Req
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: invalid payload: %v", engine.ErrInvalidRequest, err)
		}
	}
	resp, err := op(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
