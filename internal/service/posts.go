package service

import (
	"campus_api/internal/common"
	"campus_api/internal/models"
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
)

func (s *service) ListPosts(ctx context.Context) ([]models.Post, error) {
	const op = "service.ListPosts"

	posts, err := s.storage.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

func (s *service) CreatePost(ctx context.Context, who models.Identity, in models.PostInput) (models.Post, error) {
	const op = "service.CreatePost"

	post := models.Post{
		Caption:   strings.TrimSpace(in.Caption),
		CreatedAt: s.now(),
	}

	owner := uuid.NullUUID{UUID: who.ID, Valid: true}
	switch who.Role {
	case models.RoleStudent:
		post.StudentID = owner
	case models.RoleOrganisation:
		if !s.opts.AllowOrganisationPosts {
			return models.Post{}, fmt.Errorf("%s: %w", op, common.ErrInsufficientPermissions)
		}
		post.OrganisationID = owner
	default:
		return models.Post{}, fmt.Errorf("%s: %w", op, common.ErrInsufficientPermissions)
	}

	image, err := decodeImage(in.Image, in.ImageMime, s.opts.MaxImageBytes)
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}
	post.Image, post.ImageMime = image.Data, image.MimeType

	if post.ID, err = uuid.NewV4(); err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.storage.CreatePost(ctx, post)
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	return created, nil
}

// DeletePost allows the caller when it owns the post through either owner column.
func (s *service) DeletePost(ctx context.Context, who models.Identity, postID uuid.UUID) error {
	const op = "service.DeletePost"

	post, err := s.storage.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, common.ErrPostNotFound))
	}
	if !post.OwnedBy(who.ID) {
		return fmt.Errorf("%s: %w", op, common.ErrForbidden)
	}

	if err := s.storage.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, common.ErrPostNotFound))
	}

	return nil
}

// LikePost adds delta (+1 or -1) to the like count; the count is clamped at zero.
func (s *service) LikePost(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error) {
	const op = "service.LikePost"

	if delta != 1 && delta != -1 {
		return models.Post{}, fmt.Errorf("%s: %w", op, common.NewValidationError("Delta must be 1 or -1"))
	}

	post, err := s.storage.AddPostLikes(ctx, postID, delta)
	if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrPostNotFound))
	}

	return post, nil
}

// requireRole is the service-side twin of the route role gate.
func requireRole(who models.Identity, role models.Role) error {
	switch who.Role {
	case models.RoleStudent, models.RoleOrganisation:
		if who.Role != role {
			return common.ErrInsufficientPermissions
		}
		return nil
	default:
		return common.ErrInsufficientPermissions
	}
}
