package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type FlagKind string

const (
	FlagPending  FlagKind = "pending"
	FlagExisting FlagKind = "existing"
)

// FlagSubject is what a queue entry points at: a draft that never went live,
// or a post that is already published. Only PendingPost and ExistingPost
// implement it.
type FlagSubject interface {
	Kind() FlagKind
	isFlagSubject()
}

type PendingPost struct {
	Draft PostDraft `json:"draft"`
}

func (PendingPost) Kind() FlagKind { return FlagPending }
func (PendingPost) isFlagSubject() {}

type ExistingPost struct {
	PostID uuid.UUID `json:"post_id"`
}

func (ExistingPost) Kind() FlagKind { return FlagExisting }
func (ExistingPost) isFlagSubject() {}

// FlaggedContent is one moderation queue entry. AuthorID is the author of the
// content; FlaggedBy is the user who reported it and stays nil for drafts the
// gate held on its own.
type FlaggedContent struct {
	ID        uuid.UUID
	Subject   FlagSubject
	AuthorID  uuid.UUID
	FlaggedBy *uuid.UUID
	Reason    string
	FlaggedAt time.Time
}

type flaggedContentJSON struct {
	ID        uuid.UUID  `json:"id"`
	Kind      FlagKind   `json:"kind"`
	Draft     *PostDraft `json:"draft,omitempty"`
	PostID    *uuid.UUID `json:"post_id,omitempty"`
	AuthorID  uuid.UUID  `json:"author_id"`
	FlaggedBy *uuid.UUID `json:"flagged_by,omitempty"`
	Reason    string     `json:"reason"`
	FlaggedAt time.Time  `json:"flagged_at"`
}

func (f FlaggedContent) MarshalJSON() ([]byte, error) {
	out := flaggedContentJSON{
		ID:        f.ID,
		AuthorID:  f.AuthorID,
		FlaggedBy: f.FlaggedBy,
		Reason:    f.Reason,
		FlaggedAt: f.FlaggedAt,
	}
	switch s := f.Subject.(type) {
	case PendingPost:
		out.Kind = FlagPending
		out.Draft = &s.Draft
	case ExistingPost:
		out.Kind = FlagExisting
		out.PostID = &s.PostID
	default:
		return nil, fmt.Errorf("flagged content %s has no subject", f.ID)
	}
	return json.Marshal(out)
}

func (f *FlaggedContent) UnmarshalJSON(b []byte) error {
	var in flaggedContentJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	subject, err := NewFlagSubject(in.Kind, in.Draft, in.PostID)
	if err != nil {
		return err
	}
	*f = FlaggedContent{
		ID:        in.ID,
		Subject:   subject,
		AuthorID:  in.AuthorID,
		FlaggedBy: in.FlaggedBy,
		Reason:    in.Reason,
		FlaggedAt: in.FlaggedAt,
	}
	return nil
}

// NewFlagSubject rebuilds a subject from its stored columns and rejects rows
// where the kind does not match the populated field.
func NewFlagSubject(kind FlagKind, draft *PostDraft, postID *uuid.UUID) (FlagSubject, error) {
	switch {
	case kind == FlagPending && draft != nil && postID == nil:
		return PendingPost{Draft: *draft}, nil
	case kind == FlagExisting && postID != nil && draft == nil:
		return ExistingPost{PostID: *postID}, nil
	default:
		return nil, fmt.Errorf("malformed flagged content subject (kind %q)", kind)
	}
}
