package service

import (
	"campus_api/internal/auth"
	"campus_api/internal/common"
	"campus_api/internal/models"
	"campus_api/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

type Service interface {
	Register(ctx context.Context, in models.RegisterInput) (models.Session, error)
	Login(ctx context.Context, email, password string) (models.Session, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (models.User, error)
	SetProfileImage(ctx context.Context, userID uuid.UUID, encoded, mimeType string) (models.User, error)
	GetProfileImage(ctx context.Context, userID uuid.UUID) (models.Image, error)

	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (models.Event, error)
	CreateEvent(ctx context.Context, who models.Identity, in models.EventInput) (models.Event, error)
	UpdateEvent(ctx context.Context, who models.Identity, eventID uuid.UUID, patch models.EventPatch) (models.Event, error)
	DeleteEvent(ctx context.Context, who models.Identity, eventID uuid.UUID) error

	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, who models.Identity, in models.PostInput) (models.Post, error)
	DeletePost(ctx context.Context, who models.Identity, postID uuid.UUID) error
	LikePost(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error)
}

type Options struct {
	AllowOrganisationPosts bool
	MaxImageBytes          int
}

type service struct {
	storage storage.Storage
	tokens  *auth.TokenManager
	opts    Options
	now     func() time.Time
}

func NewService(st storage.Storage, tokens *auth.TokenManager, opts Options) *service {
	return &service{
		storage: st,
		tokens:  tokens,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Register(ctx context.Context, in models.RegisterInput) (models.Session, error) {
	const op = "service.Register"

	email := models.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return models.Session{}, fmt.Errorf("%s: %w", op, common.ErrMissingCredentials)
	}
	if !isValidEmail(email) {
		return models.Session{}, fmt.Errorf("%s: %w", op, common.NewValidationError("Invalid email"))
	}

	role, ok := models.ParseRole(in.Role)
	if !ok {
		role = models.RoleStudent
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = models.DefaultUserName
	}

	if _, err := s.storage.GetCredentialsByEmail(ctx, email); err == nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, common.ErrDuplicateAccount)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.CreateUser(ctx, models.User{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		// lost a race with a concurrent registration of the same email
		if errors.Is(err, storage.ErrUserExists) {
			return models.Session{}, fmt.Errorf("%s: %w", op, common.ErrDuplicateAccount)
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Session{Token: token, User: user}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "service.Login"

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.Session{}, fmt.Errorf("%s: %w", op, common.ErrMissingCredentials)
	}

	userCredentials, err := s.storage.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, fmt.Errorf("%s: %w", op, common.ErrUserNotFound)
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok := auth.CheckPasswordHash(userCredentials.PasswordHash, password); !ok {
		return models.Session{}, fmt.Errorf("%s: %w", op, common.ErrInvalidPassword)
	}

	user, err := s.GetUserByID(ctx, userCredentials.UserID)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Session{Token: token, User: user}, nil
}

func (s *service) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "service.GetUserByID"

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	return user, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	const op = "service.ChangePassword"

	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%s: %w", op, common.NewValidationError("Current and new password are required"))
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cred, err := s.storage.GetCredentialsByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	if ok := auth.CheckPasswordHash(cred.PasswordHash, currentPassword); !ok {
		return fmt.Errorf("%s: %w", op, common.ErrInvalidPassword)
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	return nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (models.User, error) {
	const op = "service.UpdateProfile"

	name = strings.TrimSpace(name)
	if name == "" {
		return models.User{}, fmt.Errorf("%s: %w", op, common.NewValidationError("Name must not be empty"))
	}

	user, err := s.storage.UpdateUserName(ctx, userID, name)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	return user, nil
}

func (s *service) SetProfileImage(ctx context.Context, userID uuid.UUID, encoded, mimeType string) (models.User, error) {
	const op = "service.SetProfileImage"

	image, err := decodeImage(encoded, mimeType, s.opts.MaxImageBytes)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetProfileImage(ctx, userID, image); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	return s.GetUserByID(ctx, userID)
}

func (s *service) GetProfileImage(ctx context.Context, userID uuid.UUID) (models.Image, error) {
	const op = "service.GetProfileImage"

	image, err := s.storage.GetProfileImage(ctx, userID)
	if err != nil {
		return models.Image{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrImageNotFound))
	}

	return image, nil
}

// notFound replaces storage.ErrNotFound with the resource-specific sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return sentinel
	}
	return err
}

// isValidEmail accepts a bare RFC 5322 address only; display-name forms such
// as "Alice <a@x.com>" parse but are not an address on their own.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
