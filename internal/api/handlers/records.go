package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/identity"
	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/internal/services"
)

type RecordHandler struct {
	intakeService *services.IntakeService
	store         records.Store
	network       string
	logger        *zap.Logger
}

func NewRecordHandler(
	intakeService *services.IntakeService,
	store records.Store,
	network string,
	logger *zap.Logger,
) *RecordHandler {
	return &RecordHandler{
		intakeService: intakeService,
		store:         store,
		network:       network,
		logger:        logger.With(zap.String("handler", "records")),
	}
}

// UploadRecord accepts a multipart form with the document under "document"
// and runs the intake pipeline. Validation problems come back as 400s with
// the message verbatim.
func (h *RecordHandler) UploadRecord(c *gin.Context) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": services.ErrMissingFile.Error()})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to read uploaded file"})
		return
	}

	req := &services.IntakeRequest{
		FileName:      header.Filename,
		MimeType:      header.Header.Get("Content-Type"),
		Content:       content,
		UserAddress:   c.PostForm("userAddress"),
		RecordType:    c.PostForm("recordType"),
		ProviderID:    c.PostForm("providerId"),
		PatientName:   c.PostForm("patientName"),
		DateOfService: c.PostForm("dateOfService"),
		Notes:         c.PostForm("notes"),
	}

	result, err := h.intakeService.Process(c.Request.Context(), req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Error()})
			return
		}
		h.logger.Error("intake pipeline failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to process medical record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// ListUserRecords returns every record indexed under the DID derived from
// the given address.
func (h *RecordHandler) ListUserRecords(c *gin.Context) {
	address := c.Param("userAddress")
	if !identity.ValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": services.ErrInvalidUserAddress.Error()})
		return
	}

	userDID := identity.DID(address, h.network)
	list, err := h.store.ListByDID(c.Request.Context(), userDID)
	if err != nil {
		h.logger.Error("listing user records failed", zap.Error(err), zap.String("user_did", userDID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to retrieve records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"userDID": userDID,
		"records": list,
		"total":   len(list),
	})
}
