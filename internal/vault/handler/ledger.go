package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/eventlog"
	"github.com/attestia/docseal/internal/health"
)

// LedgerHandler exposes the ledger health snapshot and read-only audit log
// endpoints.
type LedgerHandler struct {
	monitor *health.Monitor // nil = no remote ledger configured
	events  eventlog.Log
	logger  *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler. monitor may be nil when the
// server runs without a remote ledger.
func NewLedgerHandler(monitor *health.Monitor, events eventlog.Log, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{monitor: monitor, events: events, logger: logger}
}

// Register mounts the ledger and audit routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/ledger/health", h.LedgerHealth)

	audit := rg.Group("/audit")
	{
		audit.GET("", h.Overview)
		audit.GET("/verify", h.Verify)
		audit.GET("/entries/:idx", h.GetEntry)
	}
}

// LedgerHealth handles GET /ledger/health — returns the monitor's last probe.
func (h *LedgerHandler) LedgerHealth(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusOK, gin.H{
			"configured": false,
			"note":       "no remote ledger configured; seals use the simulated fallback",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"configured": true,
		"status":     h.monitor.Status(),
	})
}

// Overview handles GET /audit — returns the chain length and current root hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.events.Len(ctx)
	if err != nil {
		h.logger.Error("audit Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query audit log"})
		return
	}

	root, err := h.events.Root(ctx)
	if err != nil {
		h.logger.Error("audit Root", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query audit root"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": count,
		"root":    root,
	})
}

// Verify handles GET /audit/verify — walks the full chain and reports integrity.
func (h *LedgerHandler) Verify(c *gin.Context) {
	if err := h.events.Verify(c.Request.Context()); err != nil {
		h.logger.Warn("audit integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GetEntry handles GET /audit/entries/:idx — returns a single audit event.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	event, err := h.events.Get(c.Request.Context(), idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusOK, event)
}
