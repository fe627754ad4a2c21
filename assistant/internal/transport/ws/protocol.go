package ws

// Message types from client to gateway
const (
	TypeHello     = "hello"
	TypeUtterance = "utterance"
)

// Message types from gateway to client
const (
	TypeHelloAck = "hello_ack"
	TypeSay      = "say"
	TypeListen   = "listen"
	TypeBye      = "bye"
	TypeError    = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeUnauthorized    = "unauthorized"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeSessionStarted  = "session_started"
	ErrorCodeBusy            = "busy"
	ErrorCodeInternalError   = "internal_error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage opens or resumes a conversation.
type HelloMessage struct {
	BaseMessage
	UserID    string   `json:"user_id,omitempty"`
	APIKey    string   `json:"api_key,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HelloAckMessage confirms the session.
type HelloAckMessage struct {
	BaseMessage
}

// UtteranceMessage carries one recognised user utterance.
type UtteranceMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// SayMessage carries one assistant line and the controller state it was
// spoken in.
type SayMessage struct {
	BaseMessage
	Text  string `json:"text"`
	State string `json:"state,omitempty"`
}

// ListenMessage asks the client for the next utterance.
type ListenMessage struct {
	BaseMessage
	MaxMs int64 `json:"max_ms"`
}

// ByeMessage ends the conversation.
type ByeMessage struct {
	BaseMessage
}

// ErrorMessage is sent when a request cannot be served.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
