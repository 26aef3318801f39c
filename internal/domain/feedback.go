package domain

import "time"

// Feedback ratings accepted from the thumbs up/down controls.
const (
	RatingNegative = 1
	RatingPositive = 5
)

// Feedback is a user rating of a session or a single assistant message.
type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRating reports whether r is one of the accepted ratings.
func ValidRating(r int) bool {
	return r == RatingNegative || r == RatingPositive
}

// LeadStatus is the pipeline stage of a tracked lead.
type LeadStatus string

const (
	LeadNew         LeadStatus = "neu"
	LeadActive      LeadStatus = "aktiv"
	LeadReactivated LeadStatus = "reaktiviert"
	LeadClosed      LeadStatus = "abgeschlossen"
	LeadLost        LeadStatus = "verloren"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadActive, LeadReactivated, LeadClosed, LeadLost:
		return true
	}
	return false
}

// Lead is a contact the user tracks inside a coaching session.
type Lead struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	UserID      string     `json:"user_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	ContactInfo string     `json:"contact_info,omitempty"`
	Source      string     `json:"source,omitempty"`
	Status      LeadStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}
