package handler

import (
	"campus_api/internal/common"
	"campus_api/internal/models"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userResponse struct {
	User models.User `json:"user"`
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	const op = "handler.Register"

	log := h.log.With(slog.String("op", op))

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	session, err := h.serviceLayer.Register(c.Request.Context(), models.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	log.Info("user registered", slog.String("id", session.User.ID.String()), slog.String("role", string(session.User.Role)))

	c.JSON(http.StatusCreated, session)
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	session, err := h.serviceLayer.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) || errors.Is(err, common.ErrInvalidPassword) {
			h.metrics.FailedLoginAttempts.Inc()
		}

		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, session)
}

// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	const op = "handler.Me"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	user, err := h.serviceLayer.GetUserByID(c.Request.Context(), who.ID)
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, userResponse{User: user})
}

// PATCH /auth/password
func (h *Handler) ChangePassword(c *gin.Context) {
	const op = "handler.ChangePassword"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	if err := h.serviceLayer.ChangePassword(c.Request.Context(), who.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password updated"})
}
