package handler

import (
	"errors"
	"net/http"

	"neuroscan/internal/middleware"
	"neuroscan/internal/services"
	"neuroscan/internal/transport/httpdto"
	neuroscan_errors "neuroscan/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthHandler struct {
	service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req httpdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body"))
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, neuroscan_errors.ErrAlreadyExists):
			c.JSON(http.StatusConflict, httpdto.NewErrorResponse("username already taken"))
		case errors.Is(err, neuroscan_errors.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("username and a password of at least 8 characters are required"))
		default:
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("registration failed"))
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body"))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, neuroscan_errors.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("login failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := c.Get(middleware.UserIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("user not found"))
		return
	}
	c.JSON(http.StatusOK, u)
}
