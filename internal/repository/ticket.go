package repository

import (
	"database/sql"

	"supportdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type TicketRepository interface {
	CreateTicket(ticket *models.Ticket) error
	GetTicketByID(id string) (*models.Ticket, error)
	GetAllTickets() ([]*models.Ticket, error)
	GetTicketsByUserID(userID string) ([]*models.Ticket, error)
	FindOpenTicketByDescription(userID, description string) (*models.Ticket, error)
	UpdateTicket(ticket *models.Ticket) error
	DeleteTicket(id string) error
}

type ticketRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTicketRepository(db *sqlx.DB, logger *zap.Logger) TicketRepository {
	return &ticketRepository{db: db, logger: logger}
}

func (r *ticketRepository) CreateTicket(ticket *models.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusOpen
	}
	query := `INSERT INTO tickets (id, user_id, description, status)
	          VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`
	return r.db.QueryRowx(query, ticket.ID, ticket.UserID, ticket.Description, ticket.Status).
		Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetTicketByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `SELECT id, user_id, description, status, created_at, updated_at FROM tickets WHERE id = $1`
	err := r.db.Get(&ticket, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Ticket not found
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetAllTickets() ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	query := `SELECT id, user_id, description, status, created_at, updated_at FROM tickets ORDER BY created_at DESC`
	err := r.db.Select(&tickets, query)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) GetTicketsByUserID(userID string) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	query := `SELECT id, user_id, description, status, created_at, updated_at FROM tickets WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.Select(&tickets, query, userID)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// FindOpenTicketByDescription is the workflow dedup guard: it looks for an
// open ticket carrying the exact synthesized description for this user.
func (r *ticketRepository) FindOpenTicketByDescription(userID, description string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `SELECT id, user_id, description, status, created_at, updated_at FROM tickets
	          WHERE user_id = $1 AND description = $2 AND status = $3 LIMIT 1`
	err := r.db.Get(&ticket, query, userID, description, models.TicketStatusOpen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateTicket(ticket *models.Ticket) error {
	query := `UPDATE tickets SET user_id = $1, description = $2, status = $3, updated_at = NOW()
	          WHERE id = $4 RETURNING updated_at`
	err := r.db.QueryRowx(query, ticket.UserID, ticket.Description, ticket.Status, ticket.ID).
		Scan(&ticket.UpdatedAt)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	return err
}

func (r *ticketRepository) DeleteTicket(id string) error {
	result, err := r.db.Exec(`DELETE FROM tickets WHERE id = $1`, id)
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
