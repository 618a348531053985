package httpserver

import (
	"net/http"

	"marketplace-api/internal/domain"
	usersvc "marketplace-api/internal/service/user"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
}

func (h *handlers) register(c *gin.Context) {
	var req usersvc.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	session, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, h.session(session))
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "login and password are required")
		return
	}
	session, err := h.users.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, h.session(session))
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		h.writeError(c, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) profile(c *gin.Context) {
	u, err := h.users.Profile(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.writeError(c, "profile", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) updateProfile(c *gin.Context) {
	var req usersvc.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		h.writeError(c, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) session(s *usersvc.Session) sessionResponse {
	return sessionResponse{User: s.User, Token: s.Token, ExpiresIn: h.users.AccessTTLSeconds()}
}
