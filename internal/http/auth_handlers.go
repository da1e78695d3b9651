package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	CPF      string `json:"cpf"`
	Role     string `json:"role" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type sessionResponse struct {
	User model.User `json:"user"`
	service.TokenPair
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	user, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		CPF:      req.CPF,
		Role:     role,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, &user.ID, service.ActionRegister, "user", &user.ID, datatypes.JSONMap{"role": user.Role})
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, &session.User.ID, service.ActionLogin, "user", &session.User.ID, nil)
	c.JSON(http.StatusOK, sessionResponse{User: session.User, TokenPair: session.Tokens})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.svc.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{User: session.User, TokenPair: session.Tokens})
}

func (h *Handler) logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := h.svc.Auth.Me(c.Request.Context(), p.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) changePassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Auth.ChangePassword(c.Request.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
