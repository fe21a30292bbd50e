// Package realtime provides the WebSocket-based voice conversation session.
package realtime

// Event types sent from server to client.
const (
	EventConnected     = "connected"
	EventTranscript    = "transcript"
	EventReplyText     = "reply_text"
	EventDone          = "done"
	EventError         = "error"
	EventPong          = "pong"
	EventMemoryCleared = "memory_cleared"
)

// Control actions accepted from the client over text frames. Reply audio
// arrives as a separate binary frame between reply_text and done.
const (
	ActionPing        = "ping"
	ActionClearMemory = "clear_memory"
	ActionChatText    = "chat_text"
)

// Event is a server-to-client JSON frame.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ControlFrame is a client-to-server JSON text frame.
type ControlFrame struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}
