package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/hashing"
	"github.com/attestia/docseal/internal/vault/repository"
	"github.com/attestia/docseal/internal/vault/service"
)

// VerifyHandler exposes the public verification portal: hash lookups,
// deleted-document provenance, and bulk directory validation. These routes
// carry no authentication; anyone holding a hash may ask about it.
type VerifyHandler struct {
	verify    *service.VerificationService
	archive   *service.ArchiveService
	validator *service.DirectoryValidator
	logger    *zap.Logger
}

// NewVerifyHandler creates a VerifyHandler.
func NewVerifyHandler(verify *service.VerificationService, archive *service.ArchiveService, validator *service.DirectoryValidator, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{
		verify:    verify,
		archive:   archive,
		validator: validator,
		logger:    logger,
	}
}

// Register registers the verification routes on the given router group.
func (h *VerifyHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/verify/:hash", h.VerifyHash)
	rg.GET("/deleted/:hash", h.GetDeletedByHash)

	dir := rg.Group("/directory")
	{
		dir.POST("/hash", h.HashDirectory)
		dir.POST("/verify", h.VerifyDirectory)
	}
}

// VerifyHash handles GET /verify/:hash.
func (h *VerifyHandler) VerifyHash(c *gin.Context) {
	result, err := h.verify.VerifyByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("verify hash", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDeletedByHash handles GET /deleted/:hash — returns the archival record
// for a soft-deleted document.
func (h *VerifyHandler) GetDeletedByHash(c *gin.Context) {
	doc, err := h.archive.GetByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no deleted document matches this hash"})
		default:
			h.logger.Error("get deleted document", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_document": doc})
}

// directoryRequest is the JSON body for POST /directory/hash.
type directoryRequest struct {
	Files []filePayload `json:"files" binding:"required"`
}

// HashDirectory handles POST /directory/hash.
func (h *VerifyHandler) HashDirectory(c *gin.Context) {
	var req directoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files, err := decodeFiles(req.Files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	digest, err := h.validator.HashDirectory(files)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("hash directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "directory hashing failed"})
		return
	}
	c.JSON(http.StatusOK, digest)
}

// verifyDirectoryRequest is the JSON body for POST /directory/verify.
type verifyDirectoryRequest struct {
	Expected hashing.DirectoryDigest `json:"expected" binding:"required"`
	Files    []filePayload           `json:"files"    binding:"required"`
}

// VerifyDirectory handles POST /directory/verify.
func (h *VerifyHandler) VerifyDirectory(c *gin.Context) {
	var req verifyDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files, err := decodeFiles(req.Files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.validator.VerifyDirectory(req.Expected, files)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("verify directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "directory verification failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
