package handler

import (
	"campus_api/internal/common"
	"campus_api/internal/models"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type postRequest struct {
	Caption   string `json:"caption"`
	Image     string `json:"image"`
	ImageMime string `json:"imageMime"`
}

type likeRequest struct {
	Delta *int `json:"delta"`
}

type postResponse struct {
	Post models.Post `json:"post"`
}

type postsResponse struct {
	Posts []models.Post `json:"posts"`
}

// GET /posts
func (h *Handler) ListPosts(c *gin.Context) {
	const op = "handler.ListPosts"

	log := h.log.With(slog.String("op", op))

	posts, err := h.serviceLayer.ListPosts(c.Request.Context())
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, postsResponse{Posts: posts})
}

// POST /posts
func (h *Handler) CreatePost(c *gin.Context) {
	const op = "handler.CreatePost"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	post, err := h.serviceLayer.CreatePost(c.Request.Context(), who, models.PostInput{
		Caption:   req.Caption,
		Image:     req.Image,
		ImageMime: req.ImageMime,
	})
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusCreated, postResponse{Post: post})
}

// DELETE /posts/:postId
func (h *Handler) DeletePost(c *gin.Context) {
	const op = "handler.DeletePost"

	log := h.log.With(slog.String("op", op))

	who, ok := h.identity(c, log)
	if !ok {
		return
	}

	postID, ok := h.pathID(c, log, "postId", common.ErrPostNotFound)
	if !ok {
		return
	}

	if err := h.serviceLayer.DeletePost(c.Request.Context(), who, postID); err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	log.Info("post deleted", slog.String("id", postID.String()))

	c.JSON(http.StatusOK, messageResponse{Message: "Post deleted"})
}

// POST /posts/:postId/like
func (h *Handler) LikePost(c *gin.Context) {
	const op = "handler.LikePost"

	log := h.log.With(slog.String("op", op))

	postID, ok := h.pathID(c, log, "postId", common.ErrPostNotFound)
	if !ok {
		return
	}

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	delta := 0
	if req.Delta != nil {
		delta = *req.Delta
	}

	post, err := h.serviceLayer.LikePost(c.Request.Context(), postID, delta)
	if err != nil {
		h.newServiceErrorResponse(c, log, err)

		return
	}

	c.JSON(http.StatusOK, postResponse{Post: post})
}
