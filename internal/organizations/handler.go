package organizations

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orgkudos/backend/internal/models"
	"github.com/orgkudos/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateRequest is the body for POST /organizations.
type CreateRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /organizations (admin only).
func (h *Handler) Create(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 100 {
		response.BadRequest(c, "name must be 1-100 characters")
		return
	}
	org := &models.Organization{Name: body.Name}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Conflict(c, "an organization with this name already exists")
			return
		}
		response.Internal(c, "failed to create organization")
		return
	}
	response.Created(c, org)
}

// List handles GET /organizations.
func (h *Handler) List(c *gin.Context) {
	orgs, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, orgs)
}

// ListMembers handles GET /organizations/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), orgID); err != nil {
		response.NotFound(c, "organization not found")
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// Delete handles DELETE /organizations/:id (admin only). Cascades member
// users and their kudos.
func (h *Handler) Delete(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), orgID); err != nil {
		response.Internal(c, "failed to delete organization")
		return
	}
	response.NoContent(c)
}
