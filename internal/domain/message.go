// Package domain contains the core records shared across the Dev Mud site backend.
package domain

import (
	"time"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	// RoleUser marks a message typed by the visitor.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the assistant, including
	// synthesized greeting and error entries.
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. It is never edited after creation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TimeLabel formats the timestamp the way the widget displays it, e.g. "03:04 PM".
func (m Message) TimeLabel() string {
	return m.Timestamp.Format("03:04 PM")
}
