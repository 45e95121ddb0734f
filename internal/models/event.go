package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type Event struct {
	ID          uuid.UUID `json:"id"`
	OrganiserID uuid.UUID `json:"organiserId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Price       string    `json:"price"`
	Image       []byte    `json:"image,omitempty"`
	ImageMime   string    `json:"imageMime,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e Event) OwnedBy(id uuid.UUID) bool {
	return e.OrganiserID == id
}

// EventInput carries raw client fields; Date is RFC 3339 and Image is base64.
type EventInput struct {
	Title       string
	Description string
	Date        string
	Location    string
	Price       string
	Image       string
	ImageMime   string
}

// EventPatch holds the fields of a partial update. Nil means unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *string
	Location    *string
	Price       *string
	Image       *string
	ImageMime   *string
}
