package repository

import (
	"database/sql"
	"fmt"

	"supportdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type BillingRepository interface {
	CreateBilling(billing *models.Billing) error
	GetBillingByID(id string) (*models.Billing, error)
	GetBillingByUserID(userID string) (*models.Billing, error)
	UpdateStatus(userID, status string) (*models.Billing, error)
	UpdateBillingAddress(userID, billingAddress string) (*models.Billing, error)
	DeleteBilling(id string) error
	// CreateWithTicket creates the ticket and its linked billing record in a
	// single transaction, so a billing failure cannot leave an orphan ticket.
	CreateWithTicket(ticket *models.Ticket, billing *models.Billing) error
}

type billingRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewBillingRepository(db *sqlx.DB, logger *zap.Logger) BillingRepository {
	return &billingRepository{db: db, logger: logger}
}

func (r *billingRepository) CreateBilling(billing *models.Billing) error {
	if billing.ID == "" {
		billing.ID = uuid.NewString()
	}
	query := `INSERT INTO billing_records (id, user_id, billing_address, amount, status, description, ticket_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	return r.db.QueryRowx(query, billing.ID, billing.UserID, billing.BillingAddress, billing.Amount,
		billing.Status, billing.Description, billing.TicketID).
		Scan(&billing.CreatedAt, &billing.UpdatedAt)
}

func (r *billingRepository) GetBillingByID(id string) (*models.Billing, error) {
	var billing models.Billing
	query := `SELECT id, user_id, billing_address, amount, status, description, ticket_id, created_at, updated_at
	          FROM billing_records WHERE id = $1`
	err := r.db.Get(&billing, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Billing record not found
		}
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) GetBillingByUserID(userID string) (*models.Billing, error) {
	var billing models.Billing
	query := `SELECT id, user_id, billing_address, amount, status, description, ticket_id, created_at, updated_at
	          FROM billing_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	err := r.db.Get(&billing, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) UpdateStatus(userID, status string) (*models.Billing, error) {
	var billing models.Billing
	query := `UPDATE billing_records SET status = $1, updated_at = NOW()
	          WHERE id = (SELECT id FROM billing_records WHERE user_id = $2 ORDER BY created_at DESC LIMIT 1)
	          RETURNING id, user_id, billing_address, amount, status, description, ticket_id, created_at, updated_at`
	err := r.db.Get(&billing, query, status, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) UpdateBillingAddress(userID, billingAddress string) (*models.Billing, error) {
	var billing models.Billing
	query := `UPDATE billing_records SET billing_address = $1, updated_at = NOW()
	          WHERE id = (SELECT id FROM billing_records WHERE user_id = $2 ORDER BY created_at DESC LIMIT 1)
	          RETURNING id, user_id, billing_address, amount, status, description, ticket_id, created_at, updated_at`
	err := r.db.Get(&billing, query, billingAddress, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) DeleteBilling(id string) error {
	result, err := r.db.Exec(`DELETE FROM billing_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *billingRepository) CreateWithTicket(ticket *models.Ticket, billing *models.Billing) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if billing.ID == "" {
		billing.ID = uuid.NewString()
	}
	billing.TicketID = &ticket.ID

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // No-op once committed
	}()

	ticketQuery := `INSERT INTO tickets (id, user_id, description, status)
	                VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`
	if err := tx.QueryRowx(ticketQuery, ticket.ID, ticket.UserID, ticket.Description, ticket.Status).
		Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	billingQuery := `INSERT INTO billing_records (id, user_id, billing_address, amount, status, description, ticket_id)
	                 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	if err := tx.QueryRowx(billingQuery, billing.ID, billing.UserID, billing.BillingAddress, billing.Amount,
		billing.Status, billing.Description, billing.TicketID).
		Scan(&billing.CreatedAt, &billing.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create billing record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
