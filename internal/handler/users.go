package handler

import (
	"campus_api/internal/common"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type updateProfileRequest struct {
	Name string `json:"name"`
}

type imageRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// PATCH /users/me
func (h *Handler) UpdateProfile(c *gin.Context) {
	const op = "handler.UpdateProfile"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	user, err := h.serviceLayer.UpdateProfile(c.Request.Context(), who.ID, req.Name)
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, userResponse{User: user})
}

// PUT /users/me/image
func (h *Handler) SetProfileImage(c *gin.Context) {
	const op = "handler.SetProfileImage"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	user, err := h.serviceLayer.SetProfileImage(c.Request.Context(), who.ID, req.Image, req.MimeType)
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, userResponse{User: user})
}

// GET /users/:id/image
func (h *Handler) GetProfileImage(c *gin.Context) {
	const op = "handler.GetProfileImage"

	log := h.log.With(slog.String("op", op))

	userID, ok := h.pathID(c, log, "id", common.ErrImageNotFound)
	if !ok {
		return
	}

	image, err := h.serviceLayer.GetProfileImage(c.Request.Context(), userID)
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	// the route is public, so stored bytes must never be rendered as a document
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'")
	c.Header("Content-Disposition", "inline")

	c.Data(http.StatusOK, image.MimeType, image.Data)
}
