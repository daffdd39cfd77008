package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"

	"promptgate/pkg/api"
	"promptgate/pkg/engine"
	"promptgate/pkg/utils"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"` // Default: 8081, 0 picks a free port
}

// Frame is one call sent by a client. ID is echoed back so clients can
// match replies to calls that finish out of order.
type Frame struct {
	ID      string              `json:"id,omitempty"`
	Op      string              `json:"op"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

// Reply carries either the operation result or a classified error.
type Reply struct {
	ID     string         `json:"id,omitempty"`
	Op     string         `json:"op"`
	Result any            `json:"result,omitempty"`
	Error  *api.ErrorBody `json:"error,omitempty"`
}

type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

// WebChannel serves the engine operations over websocket on its own port.
type WebChannel struct {
	config      WebConfig
	server      *http.Server
	listener    net.Listener
	connections map[string]*SafeConn // Map remote address -> WS Connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	return &WebChannel{
		config:      cfg,
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

// Handler returns the channel's routes bound to ctx.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	})
	return mux
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web channel listen on %s: %w", addr, err)
	}
	c.listener = ln
	c.server = &http.Server{Handler: c.Handler(ctx)}

	slog.Info("Web channel listening", "addr", ln.Addr().String())

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web channel server error", "error", err)
		}
	}()

	return nil
}

// Addr is the bound listen address once started.
func (c *WebChannel) Addr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

func (c *WebChannel) Stop() error {
	c.mu.Lock()
	for id, conn := range c.connections {
		conn.Close()
		delete(c.connections, id)
	}
	c.mu.Unlock()

	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, dispatcher api.ChannelContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}

	conn := &SafeConn{Conn: rawConn}
	peer := r.RemoteAddr

	c.mu.Lock()
	c.connections[peer] = conn
	c.mu.Unlock()

	// In-flight calls are cancelled when the peer goes away.
	connCtx, cancel := context.WithCancel(context.Background())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		c.mu.Lock()
		delete(c.connections, peer)
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var frame Frame
		if err := json.Unmarshal(msgBytes, &frame); err != nil {
			c.reply(conn, Reply{Error: &api.ErrorBody{Type: "invalid_request", Message: "invalid frame: " + err.Error()}})
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			ctx := utils.WithDebugID(connCtx, utils.ShortID())
			slog.DebugContext(ctx, "Web call received", "peer", peer, "id", frame.ID, "op", frame.Op)

			out := Reply{ID: frame.ID, Op: frame.Op}
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "Web call panicked", "peer", peer, "op", frame.Op, "panic", r, "stack", string(debug.Stack()))
					out.Error = &api.ErrorBody{Type: "internal_error", Message: fmt.Sprintf("internal error: %v", r)}
					c.reply(conn, out)
				}
			}()
			result, err := dispatcher.Dispatch(ctx, c.ID(), frame.Op, frame.Payload)
			if err != nil {
				typ, _ := engine.Classify(err)
				out.Error = &api.ErrorBody{Type: typ, Message: err.Error()}
			} else {
				out.Result = result
			}
			c.reply(conn, out)
		}()
	}
}

func (c *WebChannel) reply(conn *SafeConn, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		slog.Error("Failed to marshal reply", "op", r.Op, "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("Failed to write reply", "op", r.Op, "error", err)
	}
}
