package notify

import "time"

// Notification types.
const (
	TypeSuccess = "success"
	TypeError   = "error"
)

// Notification is one user-facing message produced when a job reaches a
// terminal state.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
