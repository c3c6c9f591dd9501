// Package dispute runs community disputes: escalating a post, tallying the
// poll, and closing it with a moderator's verdict.
package dispute

import (
	"context"
	"time"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/metrics"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Store interface {
	CreateDispute(ctx context.Context, d model.Dispute) error
	GetDispute(ctx context.Context, id uuid.UUID) (model.Dispute, error)
	ListDisputes(ctx context.Context, status model.DisputeStatus, p util.PageParams) ([]model.Dispute, error)
	// UpdateDispute loads the dispute, applies fn and saves the result as one
	// atomic unit with respect to other updates of the same dispute. Nothing
	// is written when fn fails or reports no change.
	UpdateDispute(ctx context.Context, id uuid.UUID, fn func(*model.Dispute) (bool, error)) (model.Dispute, error)
	// AddDisputeComment stores c and bumps the dispute's comment count together.
	AddDisputeComment(ctx context.Context, c model.Comment) (model.Dispute, error)
	ListDisputeComments(ctx context.Context, disputeID uuid.UUID) ([]model.Comment, error)
	GetPost(ctx context.Context, id uuid.UUID) (model.Post, error)
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)
}

// Publisher fans dispute changes out to live subscribers.
type Publisher interface {
	PublishDispute(event string, d model.Dispute)
}

const (
	EventCreated = "dispute.created"
	EventVote    = "dispute.vote"
	EventVerdict = "dispute.verdict"
	EventComment = "dispute.comment"
)

type Service struct {
	store  Store
	events Publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(store Store, events Publisher, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// CreateDispute escalates a post into a dispute between its author and the
// initiator, with a fresh poll open for voting.
func (s *Service) CreateDispute(ctx context.Context, postID uuid.UUID, initiator model.User, req model.CreateDisputeRequest) (model.Dispute, error) {
	poll, err := buildPoll(util.SanitizeText(req.Question), sanitizeAll(req.Options))
	if err != nil {
		return model.Dispute{}, err
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return model.Dispute{}, apperr.Dependency("store", err)
	}
	author, err := s.store.GetUser(ctx, post.AuthorID)
	if err != nil {
		return model.Dispute{}, apperr.Dependency("store", err)
	}

	parties := []model.PartyRef{author.Ref()}
	if initiator.ID != author.ID {
		parties = append(parties, initiator.Ref())
	}

	d := model.Dispute{
		ID:          util.GenerateUUID(),
		Title:       util.SanitizeText(req.Title),
		Description: util.SanitizeText(req.Description),
		PostID:      post.ID,
		Parties:     parties,
		CreatedAt:   s.now().UTC(),
		Status:      model.DisputeVoting,
		Poll:        poll,
	}
	if err := s.store.CreateDispute(ctx, d); err != nil {
		return model.Dispute{}, apperr.Dependency("store", err)
	}

	s.logger.Infow("dispute opened", "dispute_id", d.ID, "post_id", post.ID, "initiator", initiator.ID)
	s.publish(EventCreated, d)
	return d, nil
}

// CastVote counts voterID's vote for option. A voter who already voted is
// ignored without error, so retries are safe.
func (s *Service) CastVote(ctx context.Context, disputeID uuid.UUID, option, voterID string) (model.Dispute, error) {
	counted := false
	d, err := s.store.UpdateDispute(ctx, disputeID, func(d *model.Dispute) (bool, error) {
		var err error
		counted, err = tally(d, option, voterID)
		return counted, err
	})
	if err != nil {
		metrics.DisputeVotes.WithLabelValues("rejected").Inc()
		return model.Dispute{}, apperr.Dependency("store", err)
	}

	if !counted {
		metrics.DisputeVotes.WithLabelValues("duplicate").Inc()
		return d, nil
	}
	metrics.DisputeVotes.WithLabelValues("counted").Inc()
	s.publish(EventVote, d)
	return d, nil
}

// SubmitVerdict closes the dispute with the moderator's decision. A dispute
// that already has a verdict keeps it and the call fails with
// apperr.ErrInvalidState.
func (s *Service) SubmitVerdict(ctx context.Context, disputeID uuid.UUID, decision, reason string, moderator model.User) (model.Dispute, error) {
	if !moderator.Role.CanModerate() {
		metrics.Verdicts.WithLabelValues("forbidden").Inc()
		return model.Dispute{}, apperr.ErrForbidden
	}

	v := model.Verdict{
		Moderator: moderator.Ref(),
		Decision:  util.SanitizeText(decision),
		Reason:    util.SanitizeText(reason),
		DecidedAt: s.now().UTC(),
	}
	d, err := s.store.UpdateDispute(ctx, disputeID, func(d *model.Dispute) (bool, error) {
		return true, closeWith(d, v)
	})
	if err != nil {
		metrics.Verdicts.WithLabelValues("rejected").Inc()
		return model.Dispute{}, apperr.Dependency("store", err)
	}

	metrics.Verdicts.WithLabelValues("closed").Inc()
	s.logger.Infow("dispute closed",
		"dispute_id", d.ID,
		"moderator", moderator.ID,
		"decision", v.Decision,
		"votes", d.Poll.TotalVotes(),
	)
	s.publish(EventVerdict, d)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Dispute, error) {
	d, err := s.store.GetDispute(ctx, id)
	return d, apperr.Dependency("store", err)
}

// Detail loads a dispute together with its comment thread.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (model.DisputeDetail, error) {
	var detail model.DisputeDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.store.GetDispute(gctx, id)
		detail.Dispute = d
		return err
	})
	g.Go(func() error {
		comments, err := s.store.ListDisputeComments(gctx, id)
		detail.Comments = comments
		return err
	})
	if err := g.Wait(); err != nil {
		return model.DisputeDetail{}, apperr.Dependency("store", err)
	}
	if detail.Comments == nil {
		detail.Comments = []model.Comment{}
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, status model.DisputeStatus, p util.PageParams) ([]model.Dispute, error) {
	disputes, err := s.store.ListDisputes(ctx, status, p.Normalize())
	if err != nil {
		return nil, apperr.Dependency("store", err)
	}
	return disputes, nil
}

func (s *Service) AddComment(ctx context.Context, disputeID, authorID uuid.UUID, text string) (model.Comment, error) {
	c := model.Comment{
		ID:        util.GenerateUUID(),
		ParentID:  disputeID,
		UserID:    authorID,
		Comment:   util.SanitizeText(text),
		CreatedAt: s.now().UTC(),
	}
	d, err := s.store.AddDisputeComment(ctx, c)
	if err != nil {
		return model.Comment{}, apperr.Dependency("store", err)
	}
	s.publish(EventComment, d)
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, disputeID uuid.UUID) ([]model.Comment, error) {
	comments, err := s.store.ListDisputeComments(ctx, disputeID)
	if err != nil {
		return nil, apperr.Dependency("store", err)
	}
	return comments, nil
}

func (s *Service) publish(event string, d model.Dispute) {
	if s.events == nil {
		return
	}
	s.events.PublishDispute(event, d)
}

func sanitizeAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = util.SanitizeText(v)
	}
	return out
}
