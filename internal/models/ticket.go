package models

import "time"

// Ticket statuses accepted by the ticket store.
const (
	TicketStatusOpen    = "open"
	TicketStatusClosed  = "closed"
	TicketStatusPending = "pending"
)

// Ticket represents a support ticket stored in the 'tickets' table.
type Ticket struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ValidTicketStatus reports whether s is one of the accepted ticket statuses.
func ValidTicketStatus(s string) bool {
	switch s {
	case TicketStatusOpen, TicketStatusClosed, TicketStatusPending:
		return true
	}
	return false
}
