// Package memory is a process-local Storage used for local runs and tests.
package memory

import (
	"campus_api/internal/models"
	"campus_api/internal/storage"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gofrs/uuid"
)

type user struct {
	models.User
	passwordHash string
	image        models.Image
}

type Storage struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*user
	byEmail  map[string]uuid.UUID
	events   map[uuid.UUID]models.Event
	posts    map[uuid.UUID]models.Post
	postSeqs map[uuid.UUID]int
	seq      int
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]*user),
		byEmail:  make(map[string]uuid.UUID),
		events:   make(map[uuid.UUID]models.Event),
		posts:    make(map[uuid.UUID]models.Post),
		postSeqs: make(map[uuid.UUID]int),
	}
}

func (s *Storage) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	const op = "memory.CreateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
	}

	rec := &user{User: u, passwordHash: u.PasswordHash}
	rec.PasswordHash = ""
	rec.HasProfileImage = false
	s.users[u.ID] = rec
	s.byEmail[u.Email] = u.ID

	return rec.User, nil
}

func (s *Storage) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "memory.GetUserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return rec.User, nil
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error) {
	const op = "memory.GetCredentialsByEmail"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.Credentials{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return models.Credentials{UserID: id, PasswordHash: s.users[id].passwordHash}, nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	const op = "memory.UpdatePasswordHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	rec.passwordHash = passwordHash

	return nil
}

func (s *Storage) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (models.User, error) {
	const op = "memory.UpdateUserName"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	rec.Name = name

	return rec.User, nil
}

func (s *Storage) SetProfileImage(ctx context.Context, userID uuid.UUID, image models.Image) error {
	const op = "memory.SetProfileImage"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	rec.image = models.Image{Data: clone(image.Data), MimeType: image.MimeType}
	rec.HasProfileImage = len(image.Data) > 0

	return nil
}

func (s *Storage) GetProfileImage(ctx context.Context, userID uuid.UUID) (models.Image, error) {
	const op = "memory.GetProfileImage"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok || len(rec.image.Data) == 0 {
		return models.Image{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return models.Image{Data: clone(rec.image.Data), MimeType: rec.image.MimeType}, nil
}

func (s *Storage) CreateEvent(ctx context.Context, event models.Event) (models.Event, error) {
	const op = "memory.CreateEvent"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[event.OrganiserID]; !ok {
		return models.Event{}, fmt.Errorf("%s: organiser %s: %w", op, event.OrganiserID, storage.ErrNotFound)
	}

	event.Image = clone(event.Image)
	s.events[event.ID] = event

	return event, nil
}

func (s *Storage) GetEvent(ctx context.Context, eventID uuid.UUID) (models.Event, error) {
	const op = "memory.GetEvent"

	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	event.Image = clone(event.Image)

	return event, nil
}

func (s *Storage) ListEvents(ctx context.Context) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		e.Image = clone(e.Image)
		events = append(events, e)
	}
	// same order as the postgres query: date, then creation time, then id
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return events, nil
}

func (s *Storage) UpdateEvent(ctx context.Context, event models.Event) (models.Event, error) {
	const op = "memory.UpdateEvent"

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.events[event.ID]
	if !ok {
		return models.Event{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	// organiser and creation time are fixed at creation
	event.OrganiserID = current.OrganiserID
	event.CreatedAt = current.CreatedAt
	event.Image = clone(event.Image)
	s.events[event.ID] = event

	return event, nil
}

func (s *Storage) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	const op = "memory.DeleteEvent"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(s.events, eventID)

	return nil
}

func (s *Storage) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	const op = "memory.CreatePost"

	if !post.HasSingleOwner() {
		return models.Post{}, fmt.Errorf("%s: post must have exactly one owner", op)
	}
	if post.Likes < 0 {
		post.Likes = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := post.StudentID.UUID
	if post.OrganisationID.Valid {
		owner = post.OrganisationID.UUID
	}
	if _, ok := s.users[owner]; !ok {
		return models.Post{}, fmt.Errorf("%s: owner %s: %w", op, owner, storage.ErrNotFound)
	}

	post.Image = clone(post.Image)
	s.posts[post.ID] = post
	s.seq++
	s.postSeqs[post.ID] = s.seq

	return post, nil
}

func (s *Storage) GetPost(ctx context.Context, postID uuid.UUID) (models.Post, error) {
	const op = "memory.GetPost"

	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[postID]
	if !ok {
		return models.Post{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	post.Image = clone(post.Image)

	return post, nil
}

// ListPosts returns the feed newest first; insertion order breaks timestamp ties.
func (s *Storage) ListPosts(ctx context.Context) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		p.Image = clone(p.Image)
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return s.postSeqs[posts[i].ID] > s.postSeqs[posts[j].ID]
	})

	return posts, nil
}

func (s *Storage) DeletePost(ctx context.Context, postID uuid.UUID) error {
	const op = "memory.DeletePost"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(s.posts, postID)
	delete(s.postSeqs, postID)

	return nil
}

func (s *Storage) AddPostLikes(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error) {
	const op = "memory.AddPostLikes"

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return models.Post{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	post.Likes += delta
	if post.Likes < 0 {
		post.Likes = 0
	}
	s.posts[postID] = post
	post.Image = clone(post.Image)

	return post, nil
}

func (s *Storage) Close() {}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
