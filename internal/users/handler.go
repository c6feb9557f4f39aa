package users

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orgkudos/backend/internal/auth"
	"github.com/orgkudos/backend/internal/middleware"
	"github.com/orgkudos/backend/internal/models"
	"github.com/orgkudos/backend/pkg/response"
)

// QuotaReader reports how many kudos a user may still send this week.
type QuotaReader interface {
	KudosLeft(ctx context.Context, userID uuid.UUID) (int, error)
}

// Handler handles user profile and directory endpoints.
type Handler struct {
	repo  *auth.Repository
	quota QuotaReader
}

// NewHandler creates a users handler.
func NewHandler(repo *auth.Repository, quota QuotaReader) *Handler {
	return &Handler{repo: repo, quota: quota}
}

// Me handles GET /me. Returns the profile projection with kudos_left
// computed fresh on every read.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	profile, err := h.repo.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load profile")
		return
	}
	left, err := h.quota.KudosLeft(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load quota")
		return
	}
	profile.KudosLeft = left
	response.OK(c, profile)
}

// ListReceivers handles GET /users. Returns colleagues the caller may send
// kudos to: same organization, excluding the caller. Users without an
// organization have no one to send to.
func (h *Handler) ListReceivers(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load user")
		return
	}
	if user.OrganizationID == nil {
		response.OK(c, []models.UserPublic{})
		return
	}
	list, err := h.repo.ListReceivers(c.Request.Context(), *user.OrganizationID, userID)
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /users/:id (admin only). The user's sent and
// received kudos cascade with them.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete user")
		return
	}
	response.NoContent(c)
}
