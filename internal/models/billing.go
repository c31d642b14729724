package models

import "time"

// Billing statuses accepted by the billing store.
const (
	BillingStatusPaid    = "paid"
	BillingStatusPending = "pending"
	BillingStatusFailed  = "failed"
)

// Billing represents a billing record stored in the 'billing_records' table.
// TicketID is a weak back-reference to the ticket the record was minted with;
// records created through the plain CRUD surface carry no ticket.
type Billing struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"userId"`
	BillingAddress string    `db:"billing_address" json:"billingAddress"`
	Amount         float64   `db:"amount" json:"amount"`
	Status         string    `db:"status" json:"status"`
	Description    string    `db:"description" json:"description"`
	TicketID       *string   `db:"ticket_id" json:"ticketId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// ValidBillingStatus reports whether s is one of the accepted billing statuses.
func ValidBillingStatus(s string) bool {
	switch s {
	case BillingStatusPaid, BillingStatusPending, BillingStatusFailed:
		return true
	}
	return false
}

// BillingStatuses lists the accepted billing statuses, used when rejecting a
// bad status with the allowed values.
func BillingStatuses() []string {
	return []string{BillingStatusPaid, BillingStatusPending, BillingStatusFailed}
}
