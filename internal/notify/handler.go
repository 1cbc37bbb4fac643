package notify

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/auth"
)

// Handler handles HTTP requests for notification subscriptions.
type Handler struct {
	svc    *Service
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewHandler creates a subscription Handler. tokens may be nil to disable
// authentication.
func NewHandler(svc *Service, tokens *auth.TokenIssuer, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// Register registers the subscription routes on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	subs := rg.Group("/subscriptions")
	subs.Use(auth.RequireActor(h.tokens))
	{
		subs.POST("", h.CreateSubscription)
		subs.GET("", h.ListSubscriptions)
		subs.DELETE("/:id", h.DeleteSubscription)
	}
}

// CreateSubscription handles POST /subscriptions.
func (h *Handler) CreateSubscription(c *gin.Context) {
	owner := auth.ActorFromCtx(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), owner, &req)
	if err != nil {
		h.logger.Error("create subscription", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Return the secret once so the caller can store it.
	c.JSON(http.StatusCreated, gin.H{
		"subscription": sub,
		"secret":       sub.Secret,
		"note":         "Store the secret securely. It will not be shown again.",
	})
}

// ListSubscriptions handles GET /subscriptions.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	owner := auth.ActorFromCtx(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	subs, err := h.svc.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list subscriptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []*Subscription{}
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs, "count": len(subs)})
}

// DeleteSubscription handles DELETE /subscriptions/:id.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	owner := auth.ActorFromCtx(c)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription ID"})
		return
	}

	if err := h.svc.Unsubscribe(c.Request.Context(), owner, subID); err != nil {
		h.logger.Error("delete subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}
