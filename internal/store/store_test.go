package store

import (
	"errors"
	"testing"
	"time"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow replays values into Scan destinations the way pgx does for the
// types used here.
type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return errors.New("column count mismatch")
	}
	for i, v := range r {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case **uuid.UUID:
			*d, _ = v.(*uuid.UUID)
		case *string:
			*d = v.(string)
		case *model.DisputeStatus:
			*d = model.DisputeStatus(v.(string))
		case *model.FlagKind:
			*d = model.FlagKind(v.(string))
		case *[]byte:
			*d, _ = v.([]byte)
		case *int:
			*d = v.(int)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "x"))
	assert.ErrorIs(t, translate(pgx.ErrNoRows, "dispute"), apperr.ErrNotFound)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}, "user"), apperr.ErrConflict)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23503"}, "post"), apperr.ErrNotFound)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23514", Message: "dispute is closed"}, "dispute"), apperr.ErrInvalidState)

	other := errors.New("connection reset")
	assert.Same(t, other, translate(other, "x"))
}

func TestDisputeRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d := model.Dispute{
		ID:          uuid.New(),
		Title:       "Unfair",
		Description: "desc",
		PostID:      uuid.New(),
		Parties:     []model.PartyRef{{ID: uuid.New(), Name: "A", Username: "a"}},
		CreatedAt:   created,
		Status:      model.DisputeClosed,
		Poll:        model.Poll{Question: "q", Options: []model.PollOption{{Text: "A", Votes: 1}, {Text: "B"}}, Voters: []string{"u1"}},
		Verdict:     &model.Verdict{Decision: "upheld", Reason: "r", DecidedAt: created},
	}
	parties, poll, verdict, err := encodeDispute(d)
	require.NoError(t, err)

	got, err := scanDispute(fakeRow{d.ID, d.Title, d.Description, d.PostID, parties, string(d.Status), poll, verdict, d.CommentCount, d.CreatedAt})
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("dispute mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeOpenDisputeHasNullVerdict(t *testing.T) {
	d := model.Dispute{ID: uuid.New(), Status: model.DisputeVoting, Poll: model.NewPoll("q", []string{"A", "B"})}
	_, _, verdict, err := encodeDispute(d)
	require.NoError(t, err)
	assert.Nil(t, verdict)

	_, poll, _, err := encodeDispute(d)
	require.NoError(t, err)
	got, err := scanDispute(fakeRow{d.ID, "", "", uuid.Nil, []byte("[]"), "voting", poll, []byte(nil), 0, time.Time{}})
	require.NoError(t, err)
	assert.Nil(t, got.Verdict)
	assert.NotNil(t, got.Poll.Voters)
}

func TestScanFlagRejectsMalformedRows(t *testing.T) {
	postID := uuid.New()
	row := fakeRow{uuid.New(), "pending", []byte(nil), &postID, uuid.New(), (*uuid.UUID)(nil), "r", time.Now()}
	_, err := scanFlag(row)
	assert.Error(t, err)

	row = fakeRow{uuid.New(), "existing", []byte(nil), &postID, uuid.New(), (*uuid.UUID)(nil), "spam", time.Now()}
	f, err := scanFlag(row)
	require.NoError(t, err)
	assert.Equal(t, model.ExistingPost{PostID: postID}, f.Subject)

	row = fakeRow{uuid.New(), "pending", []byte(`{"type":"report","entity_name":"acme","text":"t"}`), (*uuid.UUID)(nil), uuid.New(), (*uuid.UUID)(nil), "held", time.Now()}
	f, err = scanFlag(row)
	require.NoError(t, err)
	pending, ok := f.Subject.(model.PendingPost)
	require.True(t, ok)
	assert.Equal(t, "acme", pending.Draft.EntityName)
}
