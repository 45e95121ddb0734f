package handler

import (
	"campus_api/internal/common"
	"campus_api/internal/models"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	ImageMime   string `json:"imageMime"`
}

// eventPatchRequest distinguishes an omitted field (nil) from an empty one.
type eventPatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	Price       *string `json:"price"`
	Image       *string `json:"image"`
	ImageMime   *string `json:"imageMime"`
}

type eventResponse struct {
	Event models.Event `json:"event"`
}

type eventsResponse struct {
	Events []models.Event `json:"events"`
}

// GET /events
func (h *Handler) ListEvents(c *gin.Context) {
	const op = "handler.ListEvents"

	log := h.log.With(slog.String("op", op))

	events, err := h.serviceLayer.ListEvents(c.Request.Context())
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, eventsResponse{Events: events})
}

// GET /events/:id
func (h *Handler) GetEvent(c *gin.Context) {
	const op = "handler.GetEvent"

	log := h.log.With(slog.String("op", op))

	eventID, ok := h.pathID(c, log, "id", common.ErrEventNotFound)
	if !ok {
		return
	}

	event, err := h.serviceLayer.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, eventResponse{Event: event})
}

// POST /events
func (h *Handler) CreateEvent(c *gin.Context) {
	const op = "handler.CreateEvent"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	event, err := h.serviceLayer.CreateEvent(c.Request.Context(), who, models.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Price:       req.Price,
		Image:       req.Image,
		ImageMime:   req.ImageMime,
	})
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusCreated, eventResponse{Event: event})
}

// PATCH /events/:id
func (h *Handler) UpdateEvent(c *gin.Context) {
	const op = "handler.UpdateEvent"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	eventID, ok := h.pathID(c, log, "id", common.ErrEventNotFound)
	if !ok {
		return
	}

	var req eventPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	event, err := h.serviceLayer.UpdateEvent(c.Request.Context(), who, eventID, models.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Price:       req.Price,
		Image:       req.Image,
		ImageMime:   req.ImageMime,
	})
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, eventResponse{Event: event})
}

// DELETE /events/:id
func (h *Handler) DeleteEvent(c *gin.Context) {
	const op = "handler.DeleteEvent"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	eventID, ok := h.pathID(c, log, "id", common.ErrEventNotFound)
	if !ok {
		return
	}

	if err := h.serviceLayer.DeleteEvent(c.Request.Context(), who, eventID); err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	log.Info("event deleted", slog.String("id", eventID.String()))

	c.JSON(http.StatusOK, messageResponse{Message: "Event deleted"})
}
