package ws

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/dialogue"
)

// ErrConnectionClosed is returned by Capture and Say once the client is gone.
var ErrConnectionClosed = errors.New("connection closed")

// Connection is one client connection serving at most one conversation.
type Connection struct {
	ID        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	inbox     chan string
	done      chan struct{}
	once      sync.Once
	listen    time.Duration
	logger    *zap.Logger

	mu         sync.Mutex
	controller *dialogue.Controller
}

func newConnection(conn *websocket.Conn, listen time.Duration, logger *zap.Logger) *Connection {
	id := "conn_" + uuid.New().String()[:8]
	return &Connection{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, 64),
		inbox:  make(chan string, 16),
		done:   make(chan struct{}),
		listen: listen,
		logger: logger.With(zap.String("conn_id", id)),
	}
}

// SessionID returns the bound session, if any.
func (c *Connection) SessionID() string {
	return c.sessionID
}

// Done is closed when the connection stops.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) finish() {
	c.once.Do(func() { close(c.done) })
}

func (c *Connection) setController(ctrl *dialogue.Controller) {
	c.mu.Lock()
	c.controller = ctrl
	c.mu.Unlock()
}

func (c *Connection) state() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return ""
	}
	return string(c.controller.Session().State)
}

// SendJSON queues a message for the write pump.
func (c *Connection) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	}
}

func (c *Connection) sendError(code, message string) {
	_ = c.SendJSON(ErrorMessage{
		BaseMessage: BaseMessage{Type: TypeError, Ts: time.Now().UnixMilli(), SessionID: c.sessionID},
		Code:        code,
		Message:     message,
	})
}

// Capture asks the client to listen and waits for its next utterance. No
// utterance within the window yields an empty string.
func (c *Connection) Capture(ctx context.Context, maxDuration time.Duration) (string, error) {
	if c.listen > 0 {
		maxDuration = c.listen
	}
	// Utterances sent ahead of the prompt are consumed first.
	select {
	case text := <-c.inbox:
		return strings.TrimSpace(text), nil
	default:
	}

	if err := c.SendJSON(ListenMessage{
		BaseMessage: BaseMessage{Type: TypeListen, Ts: time.Now().UnixMilli(), SessionID: c.sessionID},
		MaxMs:       maxDuration.Milliseconds(),
	}); err != nil {
		return "", err
	}

	timer := time.NewTimer(maxDuration)
	defer timer.Stop()
	select {
	case text := <-c.inbox:
		return strings.TrimSpace(text), nil
	case <-timer.C:
		return "", nil
	case <-c.done:
		return "", ErrConnectionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Say sends one assistant line tagged with the current controller state.
func (c *Connection) Say(ctx context.Context, text string) error {
	return c.SendJSON(SayMessage{
		BaseMessage: BaseMessage{Type: TypeSay, Ts: time.Now().UnixMilli(), SessionID: c.sessionID},
		Text:        text,
		State:       c.state(),
	})
}

func (c *Connection) enqueueUtterance(text string) bool {
	select {
	case c.inbox <- text:
		return true
	default:
		return false
	}
}
