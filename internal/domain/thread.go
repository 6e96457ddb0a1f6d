// Package domain holds the core types shared across the attaché service.
package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Thread is a provider-side conversation record. The service keeps at most
// one current thread; rows are only ever inserted and deleted, never updated.
type Thread struct {
	ID        string    `json:"threadId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ThreadMessage is one entry in a thread's ordered message sequence.
type ThreadMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
