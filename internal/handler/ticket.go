package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"supportdesk/internal/models"
	"supportdesk/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TicketHandler interface {
	CreateTicket(c *gin.Context)
	GetAllTickets(c *gin.Context)
	GetTicketByID(c *gin.Context)
	UpdateTicket(c *gin.Context)
	DeleteTicket(c *gin.Context)
}

type ticketHandler struct {
	ticketRepo repository.TicketRepository
	logger     *zap.Logger
}

func NewTicketHandler(ticketRepo repository.TicketRepository, logger *zap.Logger) TicketHandler {
	return &ticketHandler{ticketRepo: ticketRepo, logger: logger}
}

type CreateTicketRequest struct {
	UserID      string `json:"userId" binding:"required"`
	Description string `json:"description" binding:"required"`
	Status      string `json:"status"`
}

// CreateTicket handles POST /api/tickets
func (h *ticketHandler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for ticket creation", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != "" && !models.ValidTicketStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: open, closed, pending"})
		return
	}

	ticket := &models.Ticket{
		UserID:      req.UserID,
		Description: req.Description,
		Status:      req.Status,
	}
	if err := h.ticketRepo.CreateTicket(ticket); err != nil {
		h.logger.Error("Failed to create ticket", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Ticket created successfully", "ticket": ticket})
}

// GetAllTickets handles GET /api/tickets
func (h *ticketHandler) GetAllTickets(c *gin.Context) {
	tickets, err := h.ticketRepo.GetAllTickets()
	if err != nil {
		h.logger.Error("Failed to get tickets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tickets"})
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// GetTicketByID handles GET /api/tickets/:id
func (h *ticketHandler) GetTicketByID(c *gin.Context) {
	ticket, err := h.ticketRepo.GetTicketByID(c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get ticket", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		return
	}
	if ticket == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Ticket not found"})
		return
	}

	c.JSON(http.StatusOK, ticket)
}

type UpdateTicketRequest struct {
	UserID      string `json:"userId"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// UpdateTicket handles PUT /api/tickets/:id
func (h *ticketHandler) UpdateTicket(c *gin.Context) {
	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for ticket update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != "" && !models.ValidTicketStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: open, closed, pending"})
		return
	}

	ticket, err := h.ticketRepo.GetTicketByID(c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get ticket for update", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket"})
		return
	}
	if ticket == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Ticket not found"})
		return
	}

	if req.UserID != "" {
		ticket.UserID = req.UserID
	}
	if req.Description != "" {
		ticket.Description = req.Description
	}
	if req.Status != "" {
		ticket.Status = req.Status
	}

	if err := h.ticketRepo.UpdateTicket(ticket); err != nil {
		h.logger.Error("Failed to update ticket", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket updated successfully", "ticket": ticket})
}

// DeleteTicket handles DELETE /api/tickets/:id
func (h *ticketHandler) DeleteTicket(c *gin.Context) {
	if err := h.ticketRepo.DeleteTicket(c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Ticket not found"})
			return
		}
		h.logger.Error("Failed to delete ticket", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete ticket"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket deleted successfully"})
}
