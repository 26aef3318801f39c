package domain

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is a single persisted turn of a conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session scopes a message sequence and a profile.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// SessionState is the persisted snapshot of the inference state of a session.
type SessionState struct {
	SessionID string      `json:"session_id"`
	Profile   UserProfile `json:"profile"`
	Mode      NuxMode     `json:"mode"`
	Planned   []ModeType  `json:"planned"`
	Expect    string      `json:"expect,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SessionStats summarizes the activity recorded for one session.
type SessionStats struct {
	TotalMessages     int            `json:"total_messages"`
	UserMessages      int            `json:"user_messages"`
	AssistantMessages int            `json:"assistant_messages"`
	AverageRating     *float64       `json:"average_rating"`
	TotalLeads        int            `json:"total_leads"`
	LeadsByStatus     map[string]int `json:"leads_by_status"`
}

// UserStats summarizes the activity across all sessions of one user.
type UserStats struct {
	TotalSessions int        `json:"total_sessions"`
	TotalMessages int        `json:"total_conversations"`
	TotalLeads    int        `json:"total_leads"`
	TotalFeedback int        `json:"total_feedback"`
	LastActive    *time.Time `json:"last_active"`
}
