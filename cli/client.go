package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Message types
const (
	TypeHello     = "hello"
	TypeHelloAck  = "hello_ack"
	TypeUtterance = "utterance"
	TypeSay       = "say"
	TypeListen    = "listen"
	TypeBye       = "bye"
	TypeError     = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage is sent to start or resume a conversation.
type HelloMessage struct {
	BaseMessage
	UserID    string   `json:"user_id,omitempty"`
	APIKey    string   `json:"api_key,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UtteranceMessage carries one line typed by the user.
type UtteranceMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ServerMessage is the union of the messages sent by the gateway.
type ServerMessage struct {
	BaseMessage
	Text    string `json:"text"`
	State   string `json:"state"`
	MaxMs   int64  `json:"max_ms"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrBye is returned by ReadMessages when the assistant ends the conversation.
var ErrBye = errors.New("conversation ended")

// Client is a voice gateway client.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	out       io.Writer
	verbose   bool
	writeMu   sync.Mutex

	assistant *color.Color
	prompt    *color.Color
	failure   *color.Color
}

// NewClient connects to the gateway at addr.
func NewClient(ctx context.Context, addr string, out io.Writer) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{
		conn:      conn,
		out:       out,
		assistant: color.New(color.FgCyan, color.Bold),
		prompt:    color.New(color.FgGreen),
		failure:   color.New(color.FgRed),
	}, nil
}

// SessionID returns the session confirmed by the gateway.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) read() (ServerMessage, error) {
	var msg ServerMessage
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("unmarshal: %w", err)
	}
	return msg, nil
}

// SendHello sends a hello message and waits for hello_ack.
func (c *Client) SendHello(hello HelloMessage) error {
	hello.Type = TypeHello
	hello.Ts = time.Now().UnixMilli()
	if err := c.writeJSON(hello); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	msg, err := c.read()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	switch msg.Type {
	case TypeHelloAck:
		c.sessionID = msg.SessionID
		return nil
	case TypeError:
		return fmt.Errorf("hello failed: %s - %s", msg.Code, msg.Message)
	}
	return fmt.Errorf("expected hello_ack, got: %s", msg.Type)
}

// SendUtterance sends one line of user speech.
func (c *Client) SendUtterance(text string) error {
	return c.writeJSON(UtteranceMessage{
		BaseMessage: BaseMessage{Type: TypeUtterance, Ts: time.Now().UnixMilli(), SessionID: c.sessionID},
		Text:        text,
	})
}

// ReadMessages prints what the assistant says until the conversation ends
// or the connection drops.
func (c *Client) ReadMessages() error {
	for {
		msg, err := c.read()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		switch msg.Type {
		case TypeSay:
			c.assistant.Fprint(c.out, "Assistant: ")
			fmt.Fprintln(c.out, msg.Text)
			if c.verbose && msg.State != "" {
				fmt.Fprintf(c.out, "  (state %s)\n", msg.State)
			}
		case TypeListen:
			c.prompt.Fprint(c.out, "> ")
		case TypeError:
			c.failure.Fprintf(c.out, "error: %s - %s\n", msg.Code, msg.Message)
		case TypeBye:
			return ErrBye
		}
	}
}
