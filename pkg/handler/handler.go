// Package handler exposes the engine operations as a JSON REST API.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"promptgate/pkg/api"
	"promptgate/pkg/engine"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler routes REST calls to an api.Service.
type Handler struct {
	svc      api.Service
	gatherer prometheus.Gatherer
}

// New creates a handler. A nil gatherer disables /metrics.
func New(svc api.Service, gatherer prometheus.Gatherer) *Handler {
	return &Handler{svc: svc, gatherer: gatherer}
}

// Register mounts the routes on e.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/configure", call(h.svc.Configure))
	e.POST("/register", call(h.svc.Register))
	e.POST("/predict", call(h.svc.Predict))
	e.POST("/optimize", call(h.svc.Optimize))
	e.GET("/health", h.handleHealth)

	if h.gatherer != nil {
		metrics := promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})
		e.GET("/metrics", func(c *echo.Context) error {
			metrics.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}
}

func (h *Handler) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Health(c.Request().Context()))
}

// call adapts one service operation to an echo handler: decode the body,
// run the operation, encode the result or the classified error.
func call[Req, Resp any](op func(context.Context, Req) (Resp, error)) echo.HandlerFunc {
	return func(c *echo.Context) error {
		req, err := decodeJSON[Req](c.Request().Body)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		}
		resp, err := op(c.Request().Context(), req)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func writeServiceError(c *echo.Context, err error) error {
	typ, status := engine.Classify(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Request failed", "path", c.Request().URL.Path, "type", typ, "error", err)
	} else {
		slog.DebugContext(ctx, "Request rejected", "path", c.Request().URL.Path, "type", typ, "error", err)
	}
	return writeError(c, status, typ, err.Error())
}

func writeError(c *echo.Context, status int, typ, msg string) error {
	return c.JSON(status, api.ErrorResponse{Error: api.ErrorBody{Type: typ, Message: msg}})
}
