package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Post belongs to exactly one of a student or an organisation.
type Post struct {
	ID             uuid.UUID     `json:"id"`
	StudentID      uuid.NullUUID `json:"studentId"`
	OrganisationID uuid.NullUUID `json:"organisationId"`
	Caption        string        `json:"caption"`
	Image          []byte        `json:"image"`
	ImageMime      string        `json:"imageMime"`
	Likes          int           `json:"likes"`
	CreatedAt      time.Time     `json:"createdAt"`
}

func (p Post) OwnedBy(id uuid.UUID) bool {
	return (p.StudentID.Valid && p.StudentID.UUID == id) ||
		(p.OrganisationID.Valid && p.OrganisationID.UUID == id)
}

// HasSingleOwner reports whether exactly one owner column is set.
func (p Post) HasSingleOwner() bool {
	return p.StudentID.Valid != p.OrganisationID.Valid
}

type PostInput struct {
	Caption   string
	Image     string
	ImageMime string
}
