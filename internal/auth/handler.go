package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/orgkudos/backend/internal/models"
	"github.com/orgkudos/backend/pkg/response"
	"github.com/orgkudos/backend/pkg/utils"
)

// PostgreSQL error class 23 (integrity constraint violation).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// pgErrorCode returns the SQLSTATE code of err, or "" if err is not a
// PostgreSQL error.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username     string     `json:"username" binding:"required"`
	Password     string     `json:"password" binding:"required,min=6"`
	Organization *uuid.UUID `json:"organization"` // optional, may join later
	Role         string     `json:"role"`         // optional, defaults to member
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo     *Repository
	jwt      *JWTService
	denylist *Denylist
	logger   *zap.Logger
}

// NewHandler creates an auth handler. denylist may be nil, in which case
// logout is a no-op beyond client-side token disposal.
func NewHandler(repo *Repository, jwt *JWTService, denylist *Denylist, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, denylist: denylist, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleMember
	switch req.Role {
	case "", "member":
	case "admin":
		role = models.RoleAdmin
	default:
		response.BadRequest(c, "invalid role")
		return
	}

	_, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err == nil {
		response.BadRequest(c, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Username, hash, role, req.Organization)
	if err != nil {
		// The pre-read above is not atomic with the insert; a concurrent
		// duplicate surfaces here as a unique violation.
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			response.BadRequest(c, "username already taken")
			return
		case pgForeignKeyViolation:
			response.BadRequest(c, "organization not found")
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, User: user.ToPublic()}})
}

// Logout handles POST /auth/logout. Revokes the presented token until its
// natural expiry. The token is re-parsed from the header so this handler
// does not depend on middleware context.
func (h *Handler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "invalid authorization header")
		return
	}
	claims, err := h.jwt.Validate(parts[1])
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}
	if h.denylist != nil && claims.ExpiresAt != nil {
		if err := h.denylist.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("revoke token", zap.Error(err))
			response.Internal(c, "failed to log out")
			return
		}
	}
	response.OK(c, gin.H{"message": "logged out"})
}
