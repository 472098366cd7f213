// Package chat defines the conversation data model shared by the relay and
// the session controller: turns, the bounded history ring, and the wire
// entities exchanged over the /chat endpoint.
package chat

// Role identifies who produced a turn. The widget's public vocabulary is
// "user" and "bot"; provider adapters map these to each vendor's own role
// names (e.g. "assistant", "model").
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Turn is one message exchanged by either the user or the assistant.
// Turns are immutable once appended to a History.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
