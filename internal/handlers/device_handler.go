package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/services/device"
)

// DeviceHandler serves terminal provisioning. Registration is an explicit
// setup step; payment initiation never creates devices.
type DeviceHandler struct {
	registry *device.Registry
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(registry *device.Registry) *DeviceHandler {
	return &DeviceHandler{registry: registry}
}

type registerDeviceRequest struct {
	DeviceID   string `json:"device_id" binding:"required"`
	BranchID   string `json:"branch_id" binding:"required"`
	BusinessID string `json:"business_id" binding:"required"`
	Label      string `json:"label"`
}

// Register provisions a terminal for a branch
func (h *DeviceHandler) Register(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid branch id"})
		return
	}
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business id"})
		return
	}

	dev, err := h.registry.Register(c.Request.Context(), device.RegisterRequest{
		DeviceID:   req.DeviceID,
		BranchID:   branchID,
		BusinessID: businessID,
		Label:      req.Label,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}

	c.JSON(http.StatusOK, dev)
}
