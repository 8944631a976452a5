package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/services"
)

type VerifyHandler struct {
	verifyService *services.VerifyService
	logger        *zap.Logger
}

func NewVerifyHandler(verifyService *services.VerifyService, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{
		verifyService: verifyService,
		logger:        logger.With(zap.String("handler", "verify")),
	}
}

// VerifyDocument recomputes the verification report for a stored record,
// looked up by document CID or record id. An unknown document is not an
// HTTP error; the report simply says so.
func (h *VerifyHandler) VerifyDocument(c *gin.Context) {
	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	resp, err := h.verifyService.Verify(c.Request.Context(), &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Error()})
			return
		}
		h.logger.Error("verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Verification service temporarily unavailable",
			"verification": gin.H{
				"status":    "error",
				"score":     0,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
