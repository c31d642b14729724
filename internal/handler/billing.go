package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"supportdesk/internal/models"
	"supportdesk/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BillingHandler interface {
	CreateBillingRecord(c *gin.Context)
	GetBillingDetails(c *gin.Context)
	UpdatePaymentStatus(c *gin.Context)
	UpdateBillingAddress(c *gin.Context)
	DeleteBillingRecord(c *gin.Context)
}

type billingHandler struct {
	billingRepo repository.BillingRepository
	logger      *zap.Logger
}

func NewBillingHandler(billingRepo repository.BillingRepository, logger *zap.Logger) BillingHandler {
	return &billingHandler{billingRepo: billingRepo, logger: logger}
}

type CreateBillingRequest struct {
	UserID         string  `json:"userId" binding:"required"`
	BillingAddress string  `json:"billingAddress" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Status         string  `json:"status" binding:"required"`
	Description    string  `json:"description"`
}

// CreateBillingRecord handles POST /api/bills
func (h *billingHandler) CreateBillingRecord(c *gin.Context) {
	var req CreateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for billing creation", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidBillingStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: " + strings.Join(models.BillingStatuses(), ", "),
		})
		return
	}

	billing := &models.Billing{
		UserID:         req.UserID,
		BillingAddress: req.BillingAddress,
		Amount:         req.Amount,
		Status:         req.Status,
		Description:    req.Description,
	}
	if err := h.billingRepo.CreateBilling(billing); err != nil {
		h.logger.Error("Failed to create billing record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create billing record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Billing record created successfully!", "data": billing})
}

// GetBillingDetails handles GET /api/bills/:userId
func (h *billingHandler) GetBillingDetails(c *gin.Context) {
	billing, err := h.billingRepo.GetBillingByUserID(c.Param("userId"))
	if err != nil {
		h.logger.Error("Failed to get billing record", zap.String("user_id", c.Param("userId")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve billing record"})
		return
	}
	if billing == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Billing record not found for this user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Billing details retrieved successfully", "data": billing})
}

type UpdatePaymentStatusRequest struct {
	UserID string `json:"userId" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// UpdatePaymentStatus handles PUT /api/bills/update-status
func (h *billingHandler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for status update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidBillingStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: " + strings.Join(models.BillingStatuses(), ", "),
		})
		return
	}

	billing, err := h.billingRepo.UpdateStatus(req.UserID, req.Status)
	if err != nil {
		h.logger.Error("Failed to update payment status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment status"})
		return
	}
	if billing == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Billing record not found for this user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment status updated successfully", "data": billing})
}

type UpdateBillingAddressRequest struct {
	BillingAddress string `json:"billingAddress" binding:"required"`
}

// UpdateBillingAddress handles PUT /api/bills/:userId/update-address
func (h *billingHandler) UpdateBillingAddress(c *gin.Context) {
	var req UpdateBillingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for address update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	billing, err := h.billingRepo.UpdateBillingAddress(c.Param("userId"), req.BillingAddress)
	if err != nil {
		h.logger.Error("Failed to update billing address", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update billing address"})
		return
	}
	if billing == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Billing record not found for this user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Billing address updated successfully", "data": billing})
}

// DeleteBillingRecord handles DELETE /api/bills/:id
func (h *billingHandler) DeleteBillingRecord(c *gin.Context) {
	if err := h.billingRepo.DeleteBilling(c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Billing record not found"})
			return
		}
		h.logger.Error("Failed to delete billing record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete billing record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Billing record deleted successfully"})
}
