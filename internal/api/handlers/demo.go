package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/internal/registry"
)

type DemoHandler struct {
	store  records.Store
	logger *zap.Logger
}

func NewDemoHandler(store records.Store, logger *zap.Logger) *DemoHandler {
	return &DemoHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "demo")),
	}
}

type demoRequest struct {
	Action string `json:"action"`
}

// SeedDemoData manages the demo fixtures: "seed" loads them, "clear" wipes
// the index, "list" dumps everything currently stored.
func (h *DemoHandler) SeedDemoData(c *gin.Context) {
	var req demoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "seed":
		seeded := 0
		for _, record := range records.DemoRecords() {
			if err := h.store.Put(ctx, record); err != nil {
				if errors.Is(err, records.ErrDuplicateCID) {
					continue
				}
				h.logger.Error("seeding demo record failed", zap.Error(err), zap.Int64("record_id", record.RecordID))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to seed demo data"})
				return
			}
			seeded++
		}
		total, _ := h.store.Count(ctx)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Demo data seeded successfully",
			"seeded":  seeded,
			"total":   total,
		})
	case "clear":
		if err := h.store.Clear(ctx); err != nil {
			h.logger.Error("clearing records failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to clear records"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "All records cleared"})
	case "list":
		list, err := h.store.List(ctx)
		if err != nil {
			h.logger.Error("listing records failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list records"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "records": list, "total": len(list)})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": `Invalid action. Use "seed", "clear", or "list"`})
	}
}

// ListProviders returns the healthcare provider registry.
func (h *DemoHandler) ListProviders(c *gin.Context) {
	providers := registry.All()
	c.JSON(http.StatusOK, gin.H{"success": true, "providers": providers, "total": len(providers)})
}
