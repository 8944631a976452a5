package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/config"
	"github.com/swasthwrap/healthvault/internal/identity"
)

type IdentityHandler struct {
	cfg    *config.Configuration
	logger *zap.Logger
}

func NewIdentityHandler(cfg *config.Configuration, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{
		cfg:    cfg,
		logger: logger.With(zap.String("handler", "identity")),
	}
}

type createDIDRequest struct {
	Address string `json:"address"`
}

// CreateDID derives the deterministic did:ethr identifier for a wallet
// address. No state is created; the same address always maps to the same
// DID.
func (h *IdentityHandler) CreateDID(c *gin.Context) {
	var req createDIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || !identity.ValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Valid Ethereum address required"})
		return
	}

	did := identity.DID(req.Address, h.cfg.Ledger.Network)
	h.logger.Info("DID derived", zap.String("did", did))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"did":     did,
		"address": strings.ToLower(req.Address),
		"network": h.cfg.Ledger.Network,
	})
}

// ContractInfo reports the on-chain deployment the service anchors to.
func (h *IdentityHandler) ContractInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"contract": gin.H{
			"address":     h.cfg.Ledger.ContractAddress,
			"network":     h.cfg.Ledger.Network,
			"chainId":     h.cfg.Ledger.ChainID,
			"explorerUrl": h.cfg.Ledger.ExplorerURL,
			"gatewayUrl":  h.cfg.Storage.GatewayURL,
			"issuerDID":   h.cfg.Issuer.DID,
		},
	})
}
