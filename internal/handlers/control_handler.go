package handlers

import (
	"log"
	"net/http"

	"go-leasegate/internal/control"

	"github.com/gin-gonic/gin"
)

type controlRequest struct {
	ActionType   string `json:"action_type" binding:"required"`
	Data         string `json:"data"`
	UpdateStatus bool   `json:"update_status"`
}

// HandleControl forwards a command to a room or vehicle.
func (h *Handler) HandleControl(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Asset number, sub-asset number, and action type are required."})
		return
	}

	cmd := control.Command{
		AssetNumber:    c.Param("asset_number"),
		SubAssetNumber: c.Param("sub_asset_number"),
		ActionType:     req.ActionType,
		Data:           req.Data,
		UpdateStatus:   req.UpdateStatus,
	}
	if _, err := h.ingress.Execute(c.Request.Context(), cmd); err != nil {
		log.Printf("WARN: Control command %s rejected: %v", cmd, err)
		returnError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": capitalize(cmd.ActionType) + " control command sent."})
}
