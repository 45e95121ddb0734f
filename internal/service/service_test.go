package service

import (
	"campus_api/internal/auth"
	"campus_api/internal/common"
	"campus_api/internal/models"
	"campus_api/internal/storage/memory"
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngBase64() string {
	return base64.StdEncoding.EncodeToString(pngBytes)
}

func svgBase64() string {
	return base64.StdEncoding.EncodeToString([]byte(`<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)"/>`))
}

func newTestService(t *testing.T, opts Options) (*service, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", auth.DefaultTokenTTL)
	return NewService(memory.New(), tokens, opts), tokens
}

func register(t *testing.T, s *service, email string, role models.Role) models.Session {
	t.Helper()
	sess, err := s.Register(context.Background(), models.RegisterInput{
		Email:    email,
		Password: "Passw0rd",
		Name:     "Test",
		Role:     string(role),
	})
	require.NoError(t, err)
	return sess
}

func identity(sess models.Session) models.Identity {
	return models.Identity{ID: sess.User.ID, Email: sess.User.Email, Role: sess.User.Role}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	s, tokens := newTestService(t, Options{})
	ctx := context.Background()

	reg, err := s.Register(ctx, models.RegisterInput{Email: "alice@students.plymouth.ac.uk", Password: "Passw0rd"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, models.RoleStudent, reg.User.Role)
	assert.Equal(t, models.DefaultUserName, reg.User.Name)

	for _, email := range []string{"alice@students.plymouth.ac.uk", "  ALICE@Students.Plymouth.ac.uk "} {
		login, err := s.Login(ctx, email, "Passw0rd")
		require.NoError(t, err)

		claims, err := tokens.Parse(login.Token)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID.String(), claims.UserID)
		assert.Equal(t, models.RoleStudent, claims.Role)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	register(t, s, "bob@x.com", models.RoleStudent)

	_, err := s.Register(ctx, models.RegisterInput{Email: " BOB@x.com", Password: "different", Role: "ORGANISATION"})
	assert.ErrorIs(t, err, common.ErrDuplicateAccount)

	_, err = s.Register(ctx, models.RegisterInput{Email: "bob@x.com", Password: "Passw0rd"})
	assert.ErrorIs(t, err, common.ErrDuplicateAccount)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	s, _ := newTestService(t, Options{})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Register(context.Background(), models.RegisterInput{Email: "race@x.com", Password: "p"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, common.ErrDuplicateAccount)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := s.Register(ctx, models.RegisterInput{Email: "   ", Password: "p"})
	assert.ErrorIs(t, err, common.ErrMissingCredentials)

	_, err = s.Register(ctx, models.RegisterInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrMissingCredentials)

	_, err = s.Register(ctx, models.RegisterInput{Email: "not-an-email", Password: "p"})
	assert.ErrorIs(t, err, common.ErrValidation)

	sess, err := s.Register(ctx, models.RegisterInput{Email: "org@x.com", Password: "p", Role: "organisation", Name: "  Music Society "})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganisation, sess.User.Role)
	assert.Equal(t, "Music Society", sess.User.Name)

	sess, err = s.Register(ctx, models.RegisterInput{Email: "x@x.com", Password: "p", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, sess.User.Role)
}

func TestRegister_EmailFormat(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	for _, email := range []string{
		"Alice <alice@x.com>",
		"alice@@x.com",
		"alice@x.com, bob@x.com",
		"alice smith@x.com",
		"@x.com",
		"alice@",
	} {
		t.Run(email, func(t *testing.T) {
			_, err := s.Register(ctx, models.RegisterInput{Email: email, Password: "p"})
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	sess, err := s.Register(ctx, models.RegisterInput{Email: "first.last+tag@students.plymouth.ac.uk", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "first.last+tag@students.plymouth.ac.uk", sess.User.Email)
}

func TestLogin_Errors(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	register(t, s, "carol@x.com", models.RoleStudent)

	_, err := s.Login(ctx, "ghost@x.com", "Passw0rd")
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	_, err = s.Login(ctx, "carol@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidPassword)

	_, err = s.Login(ctx, "", "")
	assert.ErrorIs(t, err, common.ErrMissingCredentials)
}

func TestLogin_MisconfiguredSecret(t *testing.T) {
	st := memory.New()
	ok := NewService(st, auth.NewTokenManager("secret", time.Hour), Options{})
	register(t, ok, "d@x.com", models.RoleStudent)

	broken := NewService(st, auth.NewTokenManager("", time.Hour), Options{})
	_, err := broken.Login(context.Background(), "d@x.com", "Passw0rd")
	assert.ErrorIs(t, err, common.ErrServerMisconfigured)
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	sess := register(t, s, "erin@x.com", models.RoleStudent)

	err := s.ChangePassword(ctx, sess.User.ID, "wrong", "NewPass1")
	assert.ErrorIs(t, err, common.ErrInvalidPassword)

	err = s.ChangePassword(ctx, sess.User.ID, "Passw0rd", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, s.ChangePassword(ctx, sess.User.ID, "Passw0rd", "NewPass1"))

	_, err = s.Login(ctx, "erin@x.com", "Passw0rd")
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
	_, err = s.Login(ctx, "erin@x.com", "NewPass1")
	assert.NoError(t, err)

	err = s.ChangePassword(ctx, uuid.Must(uuid.NewV4()), "a", "b")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestProfile(t *testing.T) {
	s, _ := newTestService(t, Options{MaxImageBytes: 1024})
	ctx := context.Background()
	sess := register(t, s, "fay@x.com", models.RoleStudent)

	u, err := s.UpdateProfile(ctx, sess.User.ID, " Fay ")
	require.NoError(t, err)
	assert.Equal(t, "Fay", u.Name)

	_, err = s.UpdateProfile(ctx, sess.User.ID, " ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.GetProfileImage(ctx, sess.User.ID)
	assert.ErrorIs(t, err, common.ErrImageNotFound)

	u, err = s.SetProfileImage(ctx, sess.User.ID, "data:image/png;base64,"+pngBase64(), "")
	require.NoError(t, err)
	assert.True(t, u.HasProfileImage)

	img, err := s.GetProfileImage(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.MimeType)

	_, err = s.SetProfileImage(ctx, uuid.Must(uuid.NewV4()), pngBase64(), "image/png")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestEventOwnership(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	orgX := identity(register(t, s, "x@org.com", models.RoleOrganisation))
	orgY := identity(register(t, s, "y@org.com", models.RoleOrganisation))
	student := identity(register(t, s, "s@x.com", models.RoleStudent))

	event, err := s.CreateEvent(ctx, orgX, models.EventInput{
		Title:    "Gig",
		Date:     "2025-01-01T20:00:00Z",
		Location: "Hall",
		Price:    "£5.00",
	})
	require.NoError(t, err)
	assert.Equal(t, orgX.ID, event.OrganiserID)

	title := "Hijacked"
	_, err = s.UpdateEvent(ctx, orgY, event.ID, models.EventPatch{Title: &title})
	assert.ErrorIs(t, err, common.ErrForbidden)

	err = s.DeleteEvent(ctx, orgY, event.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = s.CreateEvent(ctx, student, models.EventInput{Title: "t", Date: "2025-01-01T20:00:00Z", Location: "l"})
	assert.ErrorIs(t, err, common.ErrInsufficientPermissions)
	_, err = s.UpdateEvent(ctx, student, event.ID, models.EventPatch{Title: &title})
	assert.ErrorIs(t, err, common.ErrInsufficientPermissions)
	assert.ErrorIs(t, s.DeleteEvent(ctx, student, event.ID), common.ErrInsufficientPermissions)

	title = "Gig (sold out)"
	updated, err := s.UpdateEvent(ctx, orgX, event.ID, models.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Gig (sold out)", updated.Title)
	assert.Equal(t, "Hall", updated.Location)

	_, err = s.UpdateEvent(ctx, orgX, uuid.Must(uuid.NewV4()), models.EventPatch{Title: &title})
	assert.ErrorIs(t, err, common.ErrEventNotFound)

	require.NoError(t, s.DeleteEvent(ctx, orgX, event.ID))
	assert.ErrorIs(t, s.DeleteEvent(ctx, orgX, event.ID), common.ErrEventNotFound)
}

func TestEventValidation(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	org := identity(register(t, s, "o@org.com", models.RoleOrganisation))

	_, err := s.CreateEvent(ctx, org, models.EventInput{Title: "t", Location: "l"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.CreateEvent(ctx, org, models.EventInput{Title: "t", Location: "l", Date: "tomorrow"})
	assert.ErrorIs(t, err, common.ErrValidation)

	event, err := s.CreateEvent(ctx, org, models.EventInput{
		Title: "t", Location: "l", Date: "2025-03-01T18:00:00+01:00", Image: pngBase64(),
	})
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC).Equal(event.Date))
	assert.Equal(t, "image/png", event.ImageMime)

	empty := " "
	_, err = s.UpdateEvent(ctx, org, event.ID, models.EventPatch{Location: &empty})
	assert.ErrorIs(t, err, common.ErrValidation)

	cleared, err := s.UpdateEvent(ctx, org, event.ID, models.EventPatch{Image: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Image)
}

func TestUpdateEvent_ImageMimeWithoutImage(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	org := identity(register(t, s, "o@org.com", models.RoleOrganisation))

	event, err := s.CreateEvent(ctx, org, models.EventInput{
		Title: "t", Location: "l", Date: "2025-03-01T18:00:00Z", Image: pngBase64(),
	})
	require.NoError(t, err)

	jpeg, title := "image/jpeg", "renamed"
	_, err = s.UpdateEvent(ctx, org, event.ID, models.EventPatch{Title: &title, ImageMime: &jpeg})
	assert.ErrorIs(t, err, common.ErrValidation)

	stored, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", stored.Title)
	assert.Equal(t, "image/png", stored.ImageMime)
	assert.Equal(t, pngBytes, stored.Image)

	png, image := "image/png", pngBase64()
	updated, err := s.UpdateEvent(ctx, org, event.ID, models.EventPatch{Image: &image, ImageMime: &png})
	require.NoError(t, err)
	assert.Equal(t, "image/png", updated.ImageMime)
}

func TestConcurrentEventDelete(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	org := identity(register(t, s, "o@org.com", models.RoleOrganisation))

	event, err := s.CreateEvent(ctx, org, models.EventInput{Title: "t", Date: "2025-01-01T20:00:00Z", Location: "l"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.DeleteEvent(ctx, org, event.ID)
		}(i)
	}
	wg.Wait()

	deleted := 0
	for _, err := range errs {
		if err == nil {
			deleted++
			continue
		}
		assert.ErrorIs(t, err, common.ErrEventNotFound)
	}
	assert.Equal(t, 1, deleted)
}

func TestPosts_StudentOnlyByDefault(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	student := identity(register(t, s, "s@x.com", models.RoleStudent))
	org := identity(register(t, s, "o@org.com", models.RoleOrganisation))

	post, err := s.CreatePost(ctx, student, models.PostInput{Caption: "hi", Image: pngBase64()})
	require.NoError(t, err)
	assert.True(t, post.StudentID.Valid)
	assert.False(t, post.OrganisationID.Valid)

	_, err = s.CreatePost(ctx, org, models.PostInput{Image: pngBase64()})
	assert.ErrorIs(t, err, common.ErrInsufficientPermissions)

	_, err = s.CreatePost(ctx, student, models.PostInput{Caption: "no image"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPosts_OrganisationWhenAllowed(t *testing.T) {
	s, _ := newTestService(t, Options{AllowOrganisationPosts: true})
	ctx := context.Background()

	org := identity(register(t, s, "o@org.com", models.RoleOrganisation))
	other := identity(register(t, s, "s@x.com", models.RoleStudent))

	post, err := s.CreatePost(ctx, org, models.PostInput{Image: pngBase64(), ImageMime: "image/png"})
	require.NoError(t, err)
	assert.True(t, post.OrganisationID.Valid)
	assert.False(t, post.StudentID.Valid)

	assert.ErrorIs(t, s.DeletePost(ctx, other, post.ID), common.ErrForbidden)
	require.NoError(t, s.DeletePost(ctx, org, post.ID))
	assert.ErrorIs(t, s.DeletePost(ctx, org, post.ID), common.ErrPostNotFound)
}

func TestLikePost(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	student := identity(register(t, s, "s@x.com", models.RoleStudent))

	post, err := s.CreatePost(ctx, student, models.PostInput{Image: pngBase64()})
	require.NoError(t, err)

	liked, err := s.LikePost(ctx, post.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, liked.Likes)

	liked, err = s.LikePost(ctx, post.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)

	_, err = s.LikePost(ctx, post.ID, 5)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.LikePost(ctx, uuid.Must(uuid.NewV4()), 1)
	assert.ErrorIs(t, err, common.ErrPostNotFound)

	feed, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, 1, feed[0].Likes)
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		mime     string
		max      int
		wantMime string
		wantErr  bool
	}{
		{"plain base64 sniffed", pngBase64(), "", 1024, "image/png", false},
		{"explicit matching mime", pngBase64(), "IMAGE/PNG", 1024, "image/png", false},
		{"mime with parameters", pngBase64(), "image/png; name=a.png", 1024, "image/png", false},
		{"data uri", "data:image/png;base64," + pngBase64(), "", 1024, "image/png", false},
		{"declared type disagrees", pngBase64(), "image/jpeg", 1024, "", true},
		{"data uri type disagrees", "data:image/gif;base64," + pngBase64(), "", 1024, "", true},
		{"data uri not base64", "data:image/png," + pngBase64(), "", 1024, "", true},
		{"not base64", "!!!", "image/png", 1024, "", true},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("hello world")), "", 1024, "", true},
		{"explicit non-image mime", pngBase64(), "application/pdf", 1024, "", true},
		{"svg declared", svgBase64(), "image/svg+xml", 1024, "", true},
		{"svg sniffed", svgBase64(), "", 1024, "", true},
		{"svg data uri", "data:image/svg+xml;base64," + svgBase64(), "", 1024, "", true},
		{"too large", pngBase64(), "image/png", 4, "", true},
		{"empty", "", "image/png", 1024, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := decodeImage(tc.encoded, tc.mime, tc.max)
			if tc.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMime, img.MimeType)
			assert.Equal(t, pngBytes, img.Data)
		})
	}
}
