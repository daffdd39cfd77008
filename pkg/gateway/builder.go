package gateway

import (
	"errors"
	"fmt"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
	"promptgate/pkg/handler"
	"promptgate/pkg/monitor"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// GatewayBuilder provides a fluent builder pattern interface for constructing
// and initializing a GatewayManager with all its necessary dependencies.
//
// All components (service, channels, monitor) are pre-built and injected
// as instances; the Builder simply assembles and starts them.
type GatewayBuilder struct {
	gw           *GatewayManager      // The GatewayManager instance being constructed
	monitor      monitor.Monitor      // Monitoring implementation to be started
	systemConfig *config.SystemConfig // Technical parameters for the gateway
	service      api.Service          // Operations exposed by every transport
	gatherer     prometheus.Gatherer  // Source of /metrics, optional
	channels     []api.Channel        // Pre-built channel instances to register
}

// NewGatewayBuilder creates a fresh GatewayBuilder instance and allocates
// an internal GatewayManager to be configured.
func NewGatewayBuilder() *GatewayBuilder {
	return &GatewayBuilder{
		gw: NewGatewayManager(),
	}
}

// WithMonitor injects a monitoring implementation into the builder.
// This monitor will be started automatically during the Build() process.
func (b *GatewayBuilder) WithMonitor(m monitor.Monitor) *GatewayBuilder {
	b.monitor = m
	return b
}

// WithSystemConfig provides the listen address and timeouts.
func (b *GatewayBuilder) WithSystemConfig(cfg *config.SystemConfig) *GatewayBuilder {
	b.systemConfig = cfg
	return b
}

// WithService sets the operations the gateway serves.
func (b *GatewayBuilder) WithService(svc api.Service) *GatewayBuilder {
	b.service = svc
	return b
}

// WithGatherer enables GET /metrics.
func (b *GatewayBuilder) WithGatherer(g prometheus.Gatherer) *GatewayBuilder {
	b.gatherer = g
	return b
}

// WithChannel adds pre-built channel instances to the gateway.
func (b *GatewayBuilder) WithChannel(channels ...api.Channel) *GatewayBuilder {
	b.channels = append(b.channels, channels...)
	return b
}

// Build wires the REST routes, starts the monitor and every channel, and
// returns the manager ready to Serve.
func (b *GatewayBuilder) Build() (*GatewayManager, error) {
	if b.service == nil {
		return nil, errors.New("gateway requires a service")
	}
	b.gw.service = b.service

	// 0. Extract and apply system-level parameters
	if b.systemConfig != nil {
		b.gw.systemConfig = b.systemConfig
	}

	// 1. Initialize and start the monitoring service
	if b.monitor != nil {
		b.gw.monitor = b.monitor
		if err := b.monitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	// 2. REST routes
	e := echo.New()
	e.Use(handler.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	handler.New(b.service, b.gatherer).Register(e)
	b.gw.echo = e

	// 3. Register and start all pre-built channels
	for _, c := range b.channels {
		b.gw.Register(c)
	}
	if err := b.gw.StartAll(); err != nil {
		b.gw.StopAll()
		return nil, fmt.Errorf("failed to start channels: %w", err)
	}

	return b.gw, nil
}
