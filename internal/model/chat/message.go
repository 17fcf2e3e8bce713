package chat

import "time"

// Role 标识消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable turn in a session transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	ImageData string    `json:"imageData,omitempty"`
	Welcome   bool      `json:"welcome,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
