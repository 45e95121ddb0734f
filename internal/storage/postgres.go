package storage

import (
	"campus_api/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	usersTable  = "users"
	eventsTable = "events"
	postsTable  = "posts"

	uniqueViolation = "23505"
	fkViolation     = "23503"
)

const (
	userColumns  = "id, email, name, user_role, profile_image IS NOT NULL, created_at"
	eventColumns = "id, organiser_id, title, description, event_date, location, price, image, image_mime, created_at"
	postColumns  = "id, student_id, organisation_id, caption, image, image_mime, likes, created_at"
)

type PostgresStorage struct {
	db *pgxpool.Pool
}

var _ Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(ctx context.Context, DbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	conn, err := pgxpool.Connect(ctx, DbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: conn,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.HasProfileImage, &user.CreatedAt)
	return user, err
}

func scanEvent(row rowScanner) (models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.OrganiserID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Price,
		&e.Image, &e.ImageMime, &e.CreatedAt)
	return e, err
}

func scanPost(row rowScanner) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.StudentID, &p.OrganisationID, &p.Caption, &p.Image, &p.ImageMime,
		&p.Likes, &p.CreatedAt)
	return p, err
}

// wrapErr maps driver errors onto the package sentinels.
func wrapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		case fkViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrNotFound)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (p *PostgresStorage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.CreateUser"

	query := fmt.Sprintf(`INSERT INTO %s(id, email, password_hash, name, user_role, created_at)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING %s;`, usersTable, userColumns)

	created, err := scanUser(p.db.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.CreatedAt))
	if err != nil {
		return models.User{}, wrapErr(op, err)
	}

	return created, nil
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "storage.GetUserByID"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1;", userColumns, usersTable)

	user, err := scanUser(p.db.QueryRow(ctx, query, userID))
	if err != nil {
		return models.User{}, wrapErr(op, err)
	}

	return user, nil
}

func (p *PostgresStorage) GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error) {
	const op = "storage.GetCredentialsByEmail"

	var cred models.Credentials
	query := fmt.Sprintf("SELECT id, password_hash FROM %s WHERE email=$1", usersTable)

	err := p.db.QueryRow(ctx, query, email).Scan(&cred.UserID, &cred.PasswordHash)
	if err != nil {
		return cred, wrapErr(op, err)
	}

	return cred, nil
}

func (p *PostgresStorage) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	const op = "storage.UpdatePasswordHash"

	query := fmt.Sprintf("UPDATE %s SET password_hash=$1 WHERE id=$2", usersTable)

	tag, err := p.db.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		return wrapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (p *PostgresStorage) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (models.User, error) {
	const op = "storage.UpdateUserName"

	query := fmt.Sprintf("UPDATE %s SET name=$1 WHERE id=$2 RETURNING %s", usersTable, userColumns)

	user, err := scanUser(p.db.QueryRow(ctx, query, name, userID))
	if err != nil {
		return models.User{}, wrapErr(op, err)
	}

	return user, nil
}

func (p *PostgresStorage) SetProfileImage(ctx context.Context, userID uuid.UUID, image models.Image) error {
	const op = "storage.SetProfileImage"

	query := fmt.Sprintf("UPDATE %s SET profile_image=$1, profile_image_mime=$2 WHERE id=$3", usersTable)

	tag, err := p.db.Exec(ctx, query, image.Data, image.MimeType, userID)
	if err != nil {
		return wrapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (p *PostgresStorage) GetProfileImage(ctx context.Context, userID uuid.UUID) (models.Image, error) {
	const op = "storage.GetProfileImage"

	var image models.Image
	query := fmt.Sprintf(`SELECT profile_image, COALESCE(profile_image_mime, '')
	FROM %s WHERE id=$1 AND profile_image IS NOT NULL`, usersTable)

	err := p.db.QueryRow(ctx, query, userID).Scan(&image.Data, &image.MimeType)
	if err != nil {
		return image, wrapErr(op, err)
	}

	return image, nil
}

func (p *PostgresStorage) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	const op = "storage.CreateEvent"

	query := fmt.Sprintf(`INSERT INTO %s(id, organiser_id, title, description, event_date, location, price, image, image_mime, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING %s`, eventsTable, eventColumns)

	created, err := scanEvent(p.db.QueryRow(ctx, query,
		e.ID, e.OrganiserID, e.Title, e.Description, e.Date, e.Location, e.Price, e.Image, e.ImageMime, e.CreatedAt))
	if err != nil {
		return models.Event{}, wrapErr(op, err)
	}

	return created, nil
}

func (p *PostgresStorage) GetEvent(ctx context.Context, eventID uuid.UUID) (models.Event, error) {
	const op = "storage.GetEvent"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", eventColumns, eventsTable)

	e, err := scanEvent(p.db.QueryRow(ctx, query, eventID))
	if err != nil {
		return models.Event{}, wrapErr(op, err)
	}

	return e, nil
}

func (p *PostgresStorage) ListEvents(ctx context.Context) ([]models.Event, error) {
	const op = "storage.ListEvents"

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY event_date ASC, created_at ASC, id ASC", eventColumns, eventsTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return events, nil
}

func (p *PostgresStorage) UpdateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	const op = "storage.UpdateEvent"

	query := fmt.Sprintf(`UPDATE %s
	   SET title=$1, description=$2, event_date=$3, location=$4, price=$5, image=$6, image_mime=$7
	 WHERE id=$8
	RETURNING %s`, eventsTable, eventColumns)

	updated, err := scanEvent(p.db.QueryRow(ctx, query,
		e.Title, e.Description, e.Date, e.Location, e.Price, e.Image, e.ImageMime, e.ID))
	if err != nil {
		return models.Event{}, wrapErr(op, err)
	}

	return updated, nil
}

func (p *PostgresStorage) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	const op = "storage.DeleteEvent"

	query := fmt.Sprintf("DELETE FROM %s WHERE id=$1", eventsTable)

	tag, err := p.db.Exec(ctx, query, eventID)
	if err != nil {
		return wrapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (p *PostgresStorage) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	const op = "storage.CreatePost"

	query := fmt.Sprintf(`INSERT INTO %s(id, student_id, organisation_id, caption, image, image_mime, likes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING %s`, postsTable, postColumns)

	created, err := scanPost(p.db.QueryRow(ctx, query,
		post.ID, post.StudentID, post.OrganisationID, post.Caption, post.Image, post.ImageMime, post.Likes, post.CreatedAt))
	if err != nil {
		return models.Post{}, wrapErr(op, err)
	}

	return created, nil
}

func (p *PostgresStorage) GetPost(ctx context.Context, postID uuid.UUID) (models.Post, error) {
	const op = "storage.GetPost"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", postColumns, postsTable)

	post, err := scanPost(p.db.QueryRow(ctx, query, postID))
	if err != nil {
		return models.Post{}, wrapErr(op, err)
	}

	return post, nil
}

func (p *PostgresStorage) ListPosts(ctx context.Context) ([]models.Post, error) {
	const op = "storage.ListPosts"

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC, id DESC", postColumns, postsTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return posts, nil
}

func (p *PostgresStorage) DeletePost(ctx context.Context, postID uuid.UUID) error {
	const op = "storage.DeletePost"

	query := fmt.Sprintf("DELETE FROM %s WHERE id=$1", postsTable)

	tag, err := p.db.Exec(ctx, query, postID)
	if err != nil {
		return wrapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

// AddPostLikes applies delta in a single statement so the count never drops below zero.
func (p *PostgresStorage) AddPostLikes(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error) {
	const op = "storage.AddPostLikes"

	query := fmt.Sprintf(`UPDATE %s SET likes = GREATEST(likes + $1, 0) WHERE id=$2 RETURNING %s`,
		postsTable, postColumns)

	post, err := scanPost(p.db.QueryRow(ctx, query, delta, postID))
	if err != nil {
		return models.Post{}, wrapErr(op, err)
	}

	return post, nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}
