package service

import (
	"campus_api/internal/common"
	"campus_api/internal/models"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

func (s *service) ListEvents(ctx context.Context) ([]models.Event, error) {
	const op = "service.ListEvents"

	events, err := s.storage.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

func (s *service) GetEvent(ctx context.Context, eventID uuid.UUID) (models.Event, error) {
	const op = "service.GetEvent"

	event, err := s.storage.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrEventNotFound))
	}

	return event, nil
}

func (s *service) CreateEvent(ctx context.Context, who models.Identity, in models.EventInput) (models.Event, error) {
	const op = "service.CreateEvent"

	if err := requireRole(who, models.RoleOrganisation); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)
	if title == "" || location == "" || strings.TrimSpace(in.Date) == "" {
		return models.Event{}, fmt.Errorf("%s: %w", op, common.NewValidationError("Title, date and location are required"))
	}

	date, err := parseEventDate(in.Date)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	event := models.Event{
		OrganiserID: who.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		Location:    location,
		Price:       strings.TrimSpace(in.Price),
		CreatedAt:   s.now(),
	}

	if strings.TrimSpace(in.Image) != "" {
		image, err := decodeImage(in.Image, in.ImageMime, s.opts.MaxImageBytes)
		if err != nil {
			return models.Event{}, fmt.Errorf("%s: %w", op, err)
		}
		event.Image, event.ImageMime = image.Data, image.MimeType
	}

	if event.ID, err = uuid.NewV4(); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.storage.CreateEvent(ctx, event)
	if err != nil {
		// organiser account vanished after the token was issued
		return models.Event{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrUserNotFound))
	}

	return created, nil
}

// UpdateEvent re-reads the event and checks ownership against persisted state before writing.
func (s *service) UpdateEvent(ctx context.Context, who models.Identity, eventID uuid.UUID, patch models.EventPatch) (models.Event, error) {
	const op = "service.UpdateEvent"

	if err := requireRole(who, models.RoleOrganisation); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	event, err := s.storage.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrEventNotFound))
	}
	if !event.OwnedBy(who.ID) {
		return models.Event{}, fmt.Errorf("%s: %w", op, common.ErrForbidden)
	}

	if err := s.applyEventPatch(&event, patch); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.storage.UpdateEvent(ctx, event)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, notFound(err, common.ErrEventNotFound))
	}

	return updated, nil
}

func (s *service) DeleteEvent(ctx context.Context, who models.Identity, eventID uuid.UUID) error {
	const op = "service.DeleteEvent"

	if err := requireRole(who, models.RoleOrganisation); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event, err := s.storage.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, common.ErrEventNotFound))
	}
	if !event.OwnedBy(who.ID) {
		return fmt.Errorf("%s: %w", op, common.ErrForbidden)
	}

	// a concurrent delete by the owner surfaces here as not found
	if err := s.storage.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, common.ErrEventNotFound))
	}

	return nil
}

func (s *service) applyEventPatch(event *models.Event, patch models.EventPatch) error {
	// the stored type is sniffed from the bytes, so a type on its own has nothing to describe
	if patch.ImageMime != nil && patch.Image == nil {
		return common.NewValidationError("imageMime requires image")
	}

	required := func(field string, v *string, dst *string) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return common.NewValidationError(field + " must not be empty")
		}
		*dst = trimmed
		return nil
	}

	if err := required("Title", patch.Title, &event.Title); err != nil {
		return err
	}
	if err := required("Location", patch.Location, &event.Location); err != nil {
		return err
	}
	if patch.Description != nil {
		event.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		event.Price = strings.TrimSpace(*patch.Price)
	}
	if patch.Date != nil {
		date, err := parseEventDate(*patch.Date)
		if err != nil {
			return err
		}
		event.Date = date
	}

	switch {
	case patch.Image != nil && strings.TrimSpace(*patch.Image) == "":
		event.Image, event.ImageMime = nil, ""
	case patch.Image != nil:
		mime := ""
		if patch.ImageMime != nil {
			mime = *patch.ImageMime
		}
		image, err := decodeImage(*patch.Image, mime, s.opts.MaxImageBytes)
		if err != nil {
			return err
		}
		event.Image, event.ImageMime = image.Data, image.MimeType
	}

	return nil
}

func parseEventDate(v string) (time.Time, error) {
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, common.NewValidationError("Date must be an RFC 3339 timestamp")
	}
	return date.UTC(), nil
}
