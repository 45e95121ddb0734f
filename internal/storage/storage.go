package storage

import (
	"campus_api/internal/models"
	"context"
	"errors"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrUserExists = errors.New("user with this email already exists")
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Storage interface {

	// users and credentials
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (models.User, error)
	SetProfileImage(ctx context.Context, userID uuid.UUID, image models.Image) error
	GetProfileImage(ctx context.Context, userID uuid.UUID) (models.Image, error)

	// events
	CreateEvent(ctx context.Context, event models.Event) (models.Event, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) (models.Event, error)
	DeleteEvent(ctx context.Context, eventID uuid.UUID) error

	// posts
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	GetPost(ctx context.Context, postID uuid.UUID) (models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	DeletePost(ctx context.Context, postID uuid.UUID) error
	AddPostLikes(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error)

	Close()
}
