package handler

import (
	"context"
	"errors"
	"net/http"

	"supportdesk/internal/bot_engine"
	"supportdesk/internal/models"
	"supportdesk/internal/training"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageDispatcher is the conversational entry point behind POST /message.
type MessageDispatcher interface {
	HandleMessage(ctx context.Context, userID, message string, latitude, longitude *float64) (*bot_engine.Reply, error)
}

// TrainerStore is the training-data surface the trainer endpoints manage.
type TrainerStore interface {
	Upsert(message, response string) error
	UpdateResponse(message, response string) error
	UnknownMessages() ([]models.UnknownMessage, error)
}

type BotHandler interface {
	HandleUserMessage(c *gin.Context)
	AddResponse(c *gin.Context)
	UpdateResponse(c *gin.Context)
	GetUnknownMessages(c *gin.Context)
}

type botHandler struct {
	engine MessageDispatcher
	store  TrainerStore
	logger *zap.Logger
}

func NewBotHandler(engine MessageDispatcher, store TrainerStore, logger *zap.Logger) BotHandler {
	return &botHandler{engine: engine, store: store, logger: logger}
}

type BotMessageRequest struct {
	Message   string   `json:"message"`
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HandleUserMessage handles POST /api/bot/message
func (h *botHandler) HandleUserMessage(c *gin.Context) {
	var req BotMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"response": "Invalid message format."})
		return
	}

	reply, err := h.engine.HandleMessage(c.Request.Context(), req.UserID, req.Message, req.Latitude, req.Longitude)
	if err != nil {
		if errors.Is(err, bot_engine.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"response": err.Error()})
			return
		}
		h.logger.Error("Failed to handle message", zap.String("user_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"response": "Error creating the billing record."})
		return
	}

	c.JSON(http.StatusOK, reply)
}

type AddResponseRequest struct {
	Message  string `json:"message" binding:"required"`
	Response string `json:"response" binding:"required"`
}

// AddResponse handles POST /api/bot/add
func (h *botHandler) AddResponse(c *gin.Context) {
	var req AddResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.store.Upsert(req.Message, req.Response); err != nil {
		h.logger.Error("Failed to upsert training entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to save response."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Response saved successfully."})
}

type UpdateResponseRequest struct {
	Response string `json:"response" binding:"required"`
}

// UpdateResponse handles PUT /api/bot/update-response/:message
func (h *botHandler) UpdateResponse(c *gin.Context) {
	var req UpdateResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	message := c.Param("message")
	if err := h.store.UpdateResponse(message, req.Response); err != nil {
		if errors.Is(err, training.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status":  "error",
				"message": "Message \"" + message + "\" not found to update",
			})
			return
		}
		h.logger.Error("Failed to update training entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to update response."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Response updated successfully."})
}

// GetUnknownMessages handles GET /api/bot/unknown
func (h *botHandler) GetUnknownMessages(c *gin.Context) {
	unknown, err := h.store.UnknownMessages()
	if err != nil {
		h.logger.Error("Failed to fetch unknown messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"response": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unknownMessages": unknown})
}
