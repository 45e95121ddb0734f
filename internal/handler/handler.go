package handler

import (
	"campus_api/internal/auth"
	"campus_api/internal/common"
	"campus_api/internal/metrics"
	"campus_api/internal/models"
	"campus_api/internal/service"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type Options struct {
	Gzip                   bool
	AllowOrganisationPosts bool
	// MaxBodyBytes caps request bodies; zero disables the cap.
	MaxBodyBytes int64
}

type Handler struct {
	serviceLayer service.Service
	tokens       *auth.TokenManager
	metrics      *metrics.Metrics
	log          *slog.Logger
	opts         Options
}

type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: errMessage})
}

func NewHandler(srvc service.Service, tokens *auth.TokenManager, mtr *metrics.Metrics, lgr *slog.Logger, opts Options) *Handler {
	return &Handler{
		serviceLayer: srvc,
		tokens:       tokens,
		metrics:      mtr,
		log:          lgr,
		opts:         opts,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery(), RequestID(), h.requestLogger(), h.instrument())
	if h.opts.Gzip {
		router.Use(gzip.Gzip(
			gzip.DefaultCompression,
			gzip.WithExcludedPaths([]string{"/metrics"}),
		))
	}
	if h.opts.MaxBodyBytes > 0 {
		router.Use(limitBody(h.opts.MaxBodyBytes))
	}

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	authn := AuthMiddleware(h.tokens)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)

		authGroup.GET("/me", authn, h.Me)
		authGroup.PATCH("/password", authn, h.ChangePassword)
	}

	router.GET("/users/:id/image", h.GetProfileImage)
	users := router.Group("/users", authn)
	{
		users.PATCH("/me", h.UpdateProfile)
		users.PUT("/me/image", h.SetProfileImage)
	}

	events := router.Group("/events", authn)
	{
		events.GET("", h.ListEvents)
		events.GET("/:id", h.GetEvent)

		organiser := events.Group("", RequireRole(models.RoleOrganisation))
		organiser.POST("", h.CreateEvent)
		organiser.PATCH("/:id", h.UpdateEvent)
		organiser.DELETE("/:id", h.DeleteEvent)
	}

	posts := router.Group("/posts", authn)
	{
		posts.GET("", h.ListPosts)
		if h.opts.AllowOrganisationPosts {
			posts.POST("", h.CreatePost)
		} else {
			posts.POST("", RequireRole(models.RoleStudent), h.CreatePost)
		}
		posts.DELETE("/:postId", h.DeletePost)
		posts.POST("/:postId/like", h.LikePost)
	}

	return router
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// newServiceErrorResponse maps a service error to its status code. Server errors
// are logged in full and answered with a generic message.
func (h *Handler) newServiceErrorResponse(c *gin.Context, log *slog.Logger, err error) {
	status, msg := errorStatus(err)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Any("error", err), slog.String("kind", common.KindOf(err).String()))
	} else {
		log.Info("request rejected", slog.Any("error", err), slog.Int("status", status))
	}

	newErrorResponse(c, status, msg)
}

func errorStatus(err error) (int, string) {
	var verr *common.ValidationError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, common.ErrMissingCredentials):
		return http.StatusBadRequest, "Email and password are required"
	case errors.Is(err, common.ErrDuplicateAccount):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, common.ErrEventNotFound):
		return http.StatusNotFound, "Event not found"
	case errors.Is(err, common.ErrPostNotFound):
		return http.StatusNotFound, "Post not found"
	case errors.Is(err, common.ErrImageNotFound):
		return http.StatusNotFound, "Image not found"
	case errors.Is(err, common.ErrInvalidPassword):
		return http.StatusUnauthorized, "Invalid password"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, common.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusForbidden, "Invalid token"
	case errors.Is(err, common.ErrInsufficientPermissions):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, common.ErrServerMisconfigured):
		return http.StatusInternalServerError, "Server misconfigured"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// identity returns the caller attached by AuthMiddleware, answering 401 when absent.
func (h *Handler) identity(c *gin.Context, log *slog.Logger) (models.Identity, bool) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		h.newServiceErrorResponse(c, log, common.ErrNotAuthenticated)
		return models.Identity{}, false
	}

	who, err := claims.Identity()
	if err != nil {
		h.newServiceErrorResponse(c, log, err)
		return models.Identity{}, false
	}

	return who, true
}

// pathID parses a UUID path parameter. A malformed id cannot name a resource,
// so it is answered with the resource's not-found error.
func (h *Handler) pathID(c *gin.Context, log *slog.Logger, param string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(param))
	if err != nil {
		h.newServiceErrorResponse(c, log, notFound)
		return uuid.Nil, false
	}
	return id, true
}
