package model

import (
	"time"

	"github.com/google/uuid"
)

// Comment belongs to either a post or a dispute; ParentID holds the id of
// whichever it is.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	ParentID  uuid.UUID `json:"parent_id"`
	UserID    uuid.UUID `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=2000"`
}
