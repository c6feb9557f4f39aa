package kudos

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/orgkudos/backend/internal/middleware"
	"github.com/orgkudos/backend/internal/models"
	"github.com/orgkudos/backend/pkg/response"
)

// FeedPublisher broadcasts a created kudo to the organization's live feed.
type FeedPublisher interface {
	PublishKudo(orgID uuid.UUID, k *models.Kudo)
}

// Handler handles kudo HTTP endpoints.
type Handler struct {
	engine *Engine
	feed   FeedPublisher
	logger *zap.Logger
}

// NewHandler creates a kudos handler. feed may be nil.
func NewHandler(engine *Engine, feed FeedPublisher, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, feed: feed, logger: logger}
}

// GiveRequest is the body for POST /kudos.
type GiveRequest struct {
	Receiver uuid.UUID `json:"receiver" binding:"required"`
	Message  string    `json:"message" binding:"required"`
}

// Give handles POST /kudos. The authenticated user is the sender.
func (h *Handler) Give(c *gin.Context) {
	senderID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req GiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "receiver and message required")
		return
	}

	kudo, err := h.engine.Give(c.Request.Context(), senderID, req.Receiver, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrOrganizationMismatch),
		errors.Is(err, ErrSelfKudo):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, pgx.ErrNoRows):
		response.NotFound(c, "receiver not found")
		return
	default:
		h.logger.Error("give kudo", zap.Error(err))
		response.Internal(c, "failed to give kudo")
		return
	}

	if h.feed != nil {
		h.feed.PublishKudo(kudo.OrgID, kudo)
	}
	response.Created(c, kudo)
}

// ListReceived handles GET /kudos/received.
func (h *Handler) ListReceived(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.engine.ListReceived(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load kudos")
		return
	}
	response.OK(c, list)
}

// ListGiven handles GET /kudos/given.
func (h *Handler) ListGiven(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.engine.ListGiven(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load kudos")
		return
	}
	response.OK(c, list)
}
