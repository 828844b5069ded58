package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/identity"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

type AuthHandler struct {
	auth     identity.Authenticator
	sessions SessionManager
}

func NewAuthHandler(auth identity.Authenticator, sessions SessionManager) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.sessions.Issue(c.Request.Context(), *user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// Login returns a session token
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.sessions.Issue(c.Request.Context(), *user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Logout ends the caller's session
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Revoke(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
