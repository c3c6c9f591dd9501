package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	VoteUp   = "up"
	VoteDown = "down"
)

type Vote struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	VoteType  string    `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}

type PostVoteRequest struct {
	VoteType string `json:"vote_type" validate:"required,oneof=up down"`
}
