package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/auth"
	"github.com/attestia/docseal/internal/eventlog"
	"github.com/attestia/docseal/internal/vault/model"
	"github.com/attestia/docseal/internal/vault/repository"
	"github.com/attestia/docseal/internal/vault/service"
)

// maxFileBytes caps a single uploaded file after base64 decoding.
const maxFileBytes = 32 << 20

// ArtifactHandler handles HTTP requests for artifact sealing and deletion.
type ArtifactHandler struct {
	sealing *service.SealingService
	archive *service.ArchiveService
	events  eventlog.Log
	tokens  *auth.TokenIssuer // nil = auth disabled
	logger  *zap.Logger
}

// NewArtifactHandler creates an ArtifactHandler.
// tokens may be nil to disable JWT auth on protected routes.
func NewArtifactHandler(sealing *service.SealingService, archive *service.ArchiveService, events eventlog.Log, tokens *auth.TokenIssuer, logger *zap.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		sealing: sealing,
		archive: archive,
		events:  events,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register registers all artifact routes on the given router group.
func (h *ArtifactHandler) Register(rg *gin.RouterGroup) {
	artifacts := rg.Group("/artifacts")
	artifacts.Use(auth.RequireActor(h.tokens))
	{
		artifacts.POST("", h.SealArtifact)
		artifacts.GET("", h.ListArtifacts)
		artifacts.GET("/:id", h.GetArtifact)
		artifacts.GET("/:id/events", h.GetArtifactEvents)
		artifacts.POST("/:id/reseal", h.ResealArtifact)
		artifacts.DELETE("/:id", h.DeleteArtifact)
	}
}

// filePayload is one uploaded file, content transported as base64.
type filePayload struct {
	Path          string `json:"path"           binding:"required"`
	ContentBase64 string `json:"content_base64" binding:"required"`
}

// sealRequest is the JSON body for POST /artifacts.
type sealRequest struct {
	GroupKey string             `json:"group_key" binding:"required"`
	Suite    string             `json:"suite"`
	Meta     model.DocumentMeta `json:"meta"`
	Files    []filePayload      `json:"files" binding:"required"`
}

func decodeFiles(in []filePayload) ([]model.FilePayload, error) {
	out := make([]model.FilePayload, len(in))
	for i, f := range in {
		data, err := base64.StdEncoding.DecodeString(f.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("file %s: invalid base64 content", f.Path)
		}
		if len(data) > maxFileBytes {
			return nil, fmt.Errorf("file %s exceeds the %d byte limit", f.Path, maxFileBytes)
		}
		out[i] = model.FilePayload{Path: f.Path, Data: data}
	}
	return out, nil
}

// SealArtifact handles POST /artifacts.
func (h *ArtifactHandler) SealArtifact(c *gin.Context) {
	var req sealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	files, err := decodeFiles(req.Files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Suite == "" {
		req.Suite = "classic"
	}

	result, err := h.sealing.Seal(c.Request.Context(), &model.SealRequest{
		GroupKey: req.GroupKey,
		Suite:    req.Suite,
		Files:    files,
		Meta:     req.Meta,
		Actor:    auth.ActorFromCtx(c),
	})
	if err != nil {
		h.writeServiceError(c, "seal artifact", err)
		return
	}

	status := http.StatusCreated
	if result.Artifact.SealStatus == model.SealStatusFailed {
		// The artifact exists but the ledger refused or was unreachable
		// with fallback disabled.
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// ResealArtifact handles POST /artifacts/:id/reseal.
func (h *ArtifactHandler) ResealArtifact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact ID"})
		return
	}

	result, err := h.sealing.Reseal(c.Request.Context(), id, auth.ActorFromCtx(c))
	if err != nil {
		h.writeServiceError(c, "reseal artifact", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// deleteRequest is the JSON body for DELETE /artifacts/:id.
type deleteRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DeleteArtifact handles DELETE /artifacts/:id.
func (h *ArtifactHandler) DeleteArtifact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact ID"})
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.archive.Archive(c.Request.Context(), id, auth.ActorFromCtx(c), req.Reason)
	if err != nil {
		h.writeServiceError(c, "delete artifact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_document": doc})
}

// GetArtifact handles GET /artifacts/:id.
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact ID"})
		return
	}

	artifact, err := h.sealing.Get(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, "get artifact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifact": artifact})
}

// ListArtifacts handles GET /artifacts?group_key=...
func (h *ArtifactHandler) ListArtifacts(c *gin.Context) {
	groupKey := c.Query("group_key")
	if groupKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_key query parameter required"})
		return
	}
	limit, offset := pagination(c)

	artifacts, err := h.sealing.ListByGroupKey(c.Request.Context(), groupKey, limit, offset)
	if err != nil {
		h.writeServiceError(c, "list artifacts", err)
		return
	}
	if artifacts == nil {
		artifacts = []*model.Artifact{}
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": artifacts, "count": len(artifacts)})
}

// GetArtifactEvents handles GET /artifacts/:id/events. The event log keeps
// entries by artifact ID value, so this works for deleted artifacts too.
func (h *ArtifactHandler) GetArtifactEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact ID"})
		return
	}

	events, err := h.events.ListByArtifact(c.Request.Context(), id.String())
	if err != nil {
		h.logger.Error("list artifact events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []*eventlog.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// writeServiceError maps service and repository errors onto HTTP statuses.
func (h *ArtifactHandler) writeServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
	case errors.Is(err, repository.ErrAlreadyDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": "artifact already deleted"})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "artifact is locked by a concurrent operation"})
	default:
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

// pagination reads ?limit= and ?offset= with sane defaults.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
