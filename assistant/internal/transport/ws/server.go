// Package ws serves voice conversations over WebSocket. The client does the
// speech recognition and synthesis; the gateway exchanges text lines.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/service"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// Options configures the gateway. APIKey, when set, must be presented in
// hello. ListenTimeout replaces the controller capture window and
// SessionTimeout bounds one conversation when positive.
type Options struct {
	APIKey         string
	ListenTimeout  time.Duration
	SessionTimeout time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	return o
}

// Gateway upgrades HTTP requests and runs one conversation per connection.
type Gateway struct {
	svc      *service.Service
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewGateway creates a new Gateway.
func NewGateway(svc *service.Service, opts Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		svc:  svc,
		hub:  NewHub(),
		opts: opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Hub returns the connection hub.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Shutdown stops every conversation and connection.
func (g *Gateway) Shutdown() {
	g.cancel()
	g.hub.CloseAll()
}

// ServeHTTP handles the WebSocket upgrade.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newConnection(conn, g.opts.ListenTimeout, g.logger)
	g.hub.Register(c)
	c.logger.Info("websocket connected", zap.String("remote_addr", r.RemoteAddr))

	conn.SetReadLimit(g.opts.MaxMessageSize)

	go g.writePump(c)
	go g.readPump(c)
}

func (g *Gateway) readPump(c *Connection) {
	defer func() {
		c.finish()
		g.hub.Unregister(c)
		c.logger.Info("websocket disconnected")
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	})

	started := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		// Any frame extends the deadline; typed replies may be slower than pings.
		_ = c.conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))

		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			c.sendError(ErrorCodeInvalidMessage, "invalid JSON")
			continue
		}

		switch base.Type {
		case TypeHello:
			if started {
				c.sendError(ErrorCodeSessionStarted, "conversation already started")
				continue
			}
			var msg HelloMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.sendError(ErrorCodeInvalidMessage, "invalid hello message")
				continue
			}
			if !g.handleHello(c, &msg) {
				return
			}
			started = true
		case TypeUtterance:
			if !started {
				c.sendError(ErrorCodeSessionRequired, "send hello first")
				continue
			}
			var msg UtteranceMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.sendError(ErrorCodeInvalidMessage, "invalid utterance message")
				continue
			}
			if !c.enqueueUtterance(msg.Text) {
				c.sendError(ErrorCodeBusy, "too many pending utterances")
			}
		default:
			c.sendError(ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
		}
	}
}

// handleHello starts the conversation. It reports false when the connection
// must be dropped.
func (g *Gateway) handleHello(c *Connection, msg *HelloMessage) bool {
	if g.opts.APIKey != "" && msg.APIKey != g.opts.APIKey {
		c.sendError(ErrorCodeUnauthorized, "invalid api key")
		return false
	}

	req := service.StartRequest{
		SessionID: msg.SessionID,
		UserID:    msg.UserID,
		Capturer:  c,
		Speaker:   c,
	}
	if msg.Latitude != nil && msg.Longitude != nil {
		loc := domain.Location{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
		if err := loc.Validate(); err != nil {
			c.sendError(ErrorCodeInvalidMessage, err.Error())
			return false
		}
		req.Location = &loc
	}

	// A resumed session is claimed before Start so a duplicate connection
	// never touches the live session's record.
	if msg.SessionID != "" && !g.hub.BindSession(c, msg.SessionID) {
		c.sendError(ErrorCodeSessionStarted, "session is served by another connection")
		return false
	}

	conv, err := g.svc.Start(g.ctx, req)
	if err != nil {
		c.logger.Error("failed to start conversation", zap.Error(err))
		c.sendError(ErrorCodeInternalError, "failed to start conversation")
		return false
	}
	if !g.hub.BindSession(c, conv.ID()) {
		// Only reachable for a freshly created session, which this
		// connection owns.
		_ = conv.Close(context.Background())
		c.sendError(ErrorCodeSessionStarted, "session is served by another connection")
		return false
	}
	c.setController(conv.Controller())

	_ = c.SendJSON(HelloAckMessage{
		BaseMessage: BaseMessage{Type: TypeHelloAck, Ts: time.Now().UnixMilli(), SessionID: conv.ID()},
	})

	go g.run(c, conv)
	return true
}

func (g *Gateway) run(c *Connection, conv *service.Conversation) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if g.opts.SessionTimeout > 0 {
		ctx, cancel = context.WithTimeout(g.ctx, g.opts.SessionTimeout)
	} else {
		ctx, cancel = context.WithCancel(g.ctx)
	}
	defer cancel()
	go func() {
		select {
		case <-c.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := conv.Run(ctx)
	switch {
	case err == nil:
		_ = c.SendJSON(ByeMessage{
			BaseMessage: BaseMessage{Type: TypeBye, Ts: time.Now().UnixMilli(), SessionID: conv.ID()},
		})
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.SendJSON(ByeMessage{
			BaseMessage: BaseMessage{Type: TypeBye, Ts: time.Now().UnixMilli(), SessionID: conv.ID()},
		})
	case errors.Is(err, ErrConnectionClosed), errors.Is(err, context.Canceled):
	default:
		c.sendError(ErrorCodeInternalError, "conversation failed")
	}

	if err := conv.Close(context.Background()); err != nil {
		c.logger.Warn("failed to close session", zap.Error(err))
	}
	c.finish()
}

func (g *Gateway) writePump(c *Connection) {
	pingPeriod := (g.opts.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	write := func(data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
		return c.conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		select {
		case data := <-c.send:
			if err := write(data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// Flush what was queued before the stop, then close politely.
			for {
				select {
				case data := <-c.send:
					if err := write(data); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
