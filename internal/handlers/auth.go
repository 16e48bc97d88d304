package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/marketplace/internal/auth"
	"github.com/kartikbazzad/bunbase/marketplace/internal/middleware"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
)

// AuthHandler handles registration, login and profile endpoints for every role.
type AuthHandler struct {
	auth *auth.Auth
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(a *auth.Auth) *AuthHandler {
	return &AuthHandler{auth: a}
}

// Register handles POST /api/{role}/register.
func (h *AuthHandler) Register(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in auth.RegisterInput
		if !bindJSON(c, &in) {
			return
		}

		sess, err := h.auth.Register(c.Request.Context(), role, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sessionBody(role, sess))
	}
}

// Login handles POST /api/{role}/login.
func (h *AuthHandler) Login(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in auth.LoginInput
		if !bindJSON(c, &in) {
			return
		}

		sess, err := h.auth.Login(c.Request.Context(), role, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sessionBody(role, sess))
	}
}

// Profile handles GET /api/{role}/profile for the authenticated actor.
func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	actor, err := h.auth.Profile(c.Request.Context(), claims.Role, claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, actor.ToResponse())
}

func sessionBody(role models.Role, sess *auth.Session) gin.H {
	return gin.H{
		role.ResponseKey(): sess.Actor.ToResponse(),
		"token":            sess.Token,
	}
}
