package model

import (
	"time"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/google/uuid"
)

type PostType string

const (
	PostReport      PostType = "report"
	PostEndorsement PostType = "endorsement"
)

func (t PostType) Valid() bool {
	return t == PostReport || t == PostEndorsement
}

type Post struct {
	ID              uuid.UUID  `json:"id"`
	AuthorID        uuid.UUID  `json:"author_id"`
	Type            PostType   `json:"type"`
	EntityName      string     `json:"entity_name"`
	TargetUserID    *uuid.UUID `json:"target_user_id,omitempty"`
	Text            string     `json:"text"`
	ImageURL        string     `json:"image_url,omitempty"`
	SentimentScore  float64    `json:"sentiment_score"`
	BiasDetected    bool       `json:"bias_detected"`
	BiasExplanation string     `json:"bias_explanation,omitempty"`
	UpvotesCount    int        `json:"upvotes_count"`
	DownvotesCount  int        `json:"downvotes_count"`
	CommentsCount   int        `json:"comments_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PostDraft is what a user submits; it becomes a Post only after the
// moderation gate admits it.
type PostDraft struct {
	Type       PostType `json:"type" validate:"required,oneof=report endorsement"`
	EntityName string   `json:"entity_name" validate:"required,notblank,max=120"`
	Text       string   `json:"text" validate:"required,notblank,max=5000"`
	ImageURL   string   `json:"image_url,omitempty" validate:"omitempty,url"`
}

type FlagPostRequest struct {
	Reason string `json:"reason" validate:"required,oneof=spam harassment misinformation hate other"`
}

// SubmissionOutcome is the result of pushing a draft through the moderation
// gate. Exactly one of Post and Held is set.
type SubmissionOutcome struct {
	Post *Post           `json:"post,omitempty"`
	Held *HeldSubmission `json:"held,omitempty"`
}

// Err returns apperr.ErrModerationHold when the draft went to the review
// queue instead of being published.
func (o SubmissionOutcome) Err() error {
	if o.Held != nil {
		return apperr.ErrModerationHold
	}
	return nil
}

type HeldSubmission struct {
	FlaggedID uuid.UUID `json:"flagged_id"`
	Reason    string    `json:"reason"`
}
