// Package memstore is an in-memory store with the same contract as the
// Postgres store. It backs tests and the server's --in-memory mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	users           map[uuid.UUID]model.User
	posts           map[uuid.UUID]model.Post
	postVotes       map[uuid.UUID]map[uuid.UUID]string
	postComments    map[uuid.UUID][]model.Comment
	disputes        map[uuid.UUID]model.Dispute
	disputeComments map[uuid.UUID][]model.Comment
	flags           map[uuid.UUID]model.FlaggedContent

	// insertion order, oldest first
	postOrder    []uuid.UUID
	disputeOrder []uuid.UUID
	flagOrder    []uuid.UUID
}

func New() *Store {
	return &Store{
		users:           map[uuid.UUID]model.User{},
		posts:           map[uuid.UUID]model.Post{},
		postVotes:       map[uuid.UUID]map[uuid.UUID]string{},
		postComments:    map[uuid.UUID][]model.Comment{},
		disputes:        map[uuid.UUID]model.Dispute{},
		disputeComments: map[uuid.UUID][]model.Comment{},
		flags:           map[uuid.UUID]model.FlaggedContent{},
	}
}

func notFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
}

func page[T any](items []T, p util.PageParams) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Users

func (s *Store) CreateUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, apperr.ErrConflict)
	}
	if s.usernameTaken(u.Username, u.ID) {
		return fmt.Errorf("username %q: %w", u.Username, apperr.ErrConflict)
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("username %q: %w", username, apperr.ErrNotFound)
}

// UpsertGoogleUser matches on email. Existing users get their name and avatar
// refreshed; new users are created with u's username, which must be free.
func (s *Store) UpsertGoogleUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range s.users {
		if existing.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			existing.Name = u.Name
			existing.AvatarURL = u.AvatarURL
			existing.UpdatedAt = now
			s.users[id] = existing
			return existing, nil
		}
	}
	if s.usernameTaken(u.Username, u.ID) {
		return model.User{}, fmt.Errorf("username %q: %w", u.Username, apperr.ErrConflict)
	}
	u.Role = model.RoleUser
	u.TrustScore = model.DefaultTrustScore
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateTrustScore(_ context.Context, id uuid.UUID, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return notFound("user", id)
	}
	if score < model.MinTrustScore || score > model.MaxTrustScore {
		return fmt.Errorf("trust score %d out of range", score)
	}
	u.TrustScore = score
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *Store) usernameTaken(username string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

// Posts

func (s *Store) CreatePost(_ context.Context, p model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPost(p)
}

func (s *Store) insertPost(p model.Post) error {
	if _, ok := s.users[p.AuthorID]; !ok {
		return notFound("user", p.AuthorID)
	}
	if _, ok := s.posts[p.ID]; ok {
		return fmt.Errorf("post %s: %w", p.ID, apperr.ErrConflict)
	}
	s.posts[p.ID] = p
	s.postOrder = append(s.postOrder, p.ID)
	return nil
}

func (s *Store) GetPost(_ context.Context, id uuid.UUID) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, notFound("post", id)
	}
	return p, nil
}

func (s *Store) ListPosts(_ context.Context, p util.PageParams) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.newestPosts(func(model.Post) bool { return true }), p), nil
}

func (s *Store) ListPostsAboutUser(_ context.Context, userID uuid.UUID, p util.PageParams) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.newestPosts(func(post model.Post) bool {
		return post.TargetUserID != nil && *post.TargetUserID == userID
	}), p), nil
}

func (s *Store) newestPosts(keep func(model.Post) bool) []model.Post {
	out := make([]model.Post, 0, len(s.postOrder))
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		if p, ok := s.posts[s.postOrder[i]]; ok && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// VotePost records or changes userID's vote and returns the post with its
// counters moved accordingly.
func (s *Store) VotePost(_ context.Context, postID, userID uuid.UUID, voteType string) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return model.Post{}, notFound("post", postID)
	}
	votes := s.postVotes[postID]
	if votes == nil {
		votes = map[uuid.UUID]string{}
		s.postVotes[postID] = votes
	}
	previous := votes[userID]
	if previous == voteType {
		return p, nil
	}
	switch previous {
	case model.VoteUp:
		p.UpvotesCount--
	case model.VoteDown:
		p.DownvotesCount--
	}
	switch voteType {
	case model.VoteUp:
		p.UpvotesCount++
	case model.VoteDown:
		p.DownvotesCount++
	}
	votes[userID] = voteType
	s.posts[postID] = p
	return p, nil
}

func (s *Store) AddPostComment(_ context.Context, c model.Comment) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[c.ParentID]
	if !ok {
		return model.Post{}, notFound("post", c.ParentID)
	}
	p.CommentsCount++
	s.posts[p.ID] = p
	s.postComments[p.ID] = append(s.postComments[p.ID], c)
	return p, nil
}

func (s *Store) ListPostComments(_ context.Context, postID uuid.UUID) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, notFound("post", postID)
	}
	return append([]model.Comment{}, s.postComments[postID]...), nil
}

// DeletePostWithFlags removes a live post together with every queue entry
// that points at it. Disputes about the post stay, keeping its id.
func (s *Store) DeletePostWithFlags(_ context.Context, postID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return notFound("post", postID)
	}
	delete(s.posts, postID)
	delete(s.postVotes, postID)
	delete(s.postComments, postID)
	for id, f := range s.flags {
		if e, ok := f.Subject.(model.ExistingPost); ok && e.PostID == postID {
			delete(s.flags, id)
		}
	}
	return nil
}

// Disputes

func (s *Store) CreateDispute(_ context.Context, d model.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[d.PostID]; !ok {
		return notFound("post", d.PostID)
	}
	if _, ok := s.disputes[d.ID]; ok {
		return fmt.Errorf("dispute %s: %w", d.ID, apperr.ErrConflict)
	}
	s.disputes[d.ID] = cloneDispute(d)
	s.disputeOrder = append(s.disputeOrder, d.ID)
	return nil
}

func (s *Store) GetDispute(_ context.Context, id uuid.UUID) (model.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.disputes[id]
	if !ok {
		return model.Dispute{}, notFound("dispute", id)
	}
	return cloneDispute(d), nil
}

func (s *Store) ListDisputes(_ context.Context, status model.DisputeStatus, p util.PageParams) ([]model.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Dispute, 0, len(s.disputeOrder))
	for i := len(s.disputeOrder) - 1; i >= 0; i-- {
		d, ok := s.disputes[s.disputeOrder[i]]
		if !ok || (status != "" && d.Status != status) {
			continue
		}
		out = append(out, cloneDispute(d))
	}
	return page(out, p), nil
}

// UpdateDispute holds the store lock while fn runs, so updates to any
// dispute are applied one at a time. fn works on a copy; the copy replaces
// the stored dispute only when fn succeeds and reports a change.
func (s *Store) UpdateDispute(_ context.Context, id uuid.UUID, fn func(*model.Dispute) (bool, error)) (model.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.disputes[id]
	if !ok {
		return model.Dispute{}, notFound("dispute", id)
	}
	next := cloneDispute(current)
	changed, err := fn(&next)
	if err != nil {
		return model.Dispute{}, err
	}
	if !changed {
		return cloneDispute(current), nil
	}
	if current.IsClosed() {
		return model.Dispute{}, fmt.Errorf("dispute %s is closed: %w", id, apperr.ErrInvalidState)
	}
	if next.IsClosed() != (next.Verdict != nil) {
		return model.Dispute{}, fmt.Errorf("dispute %s: status %q does not match verdict", id, next.Status)
	}
	s.disputes[id] = cloneDispute(next)
	return next, nil
}

func (s *Store) AddDisputeComment(_ context.Context, c model.Comment) (model.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.disputes[c.ParentID]
	if !ok {
		return model.Dispute{}, notFound("dispute", c.ParentID)
	}
	d.CommentCount++
	s.disputes[d.ID] = d
	s.disputeComments[d.ID] = append(s.disputeComments[d.ID], c)
	return cloneDispute(d), nil
}

func (s *Store) ListDisputeComments(_ context.Context, disputeID uuid.UUID) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Comment{}, s.disputeComments[disputeID]...), nil
}

func cloneDispute(d model.Dispute) model.Dispute {
	d.Parties = append([]model.PartyRef(nil), d.Parties...)
	d.Poll.Options = append([]model.PollOption(nil), d.Poll.Options...)
	d.Poll.Voters = append([]string{}, d.Poll.Voters...)
	if d.Verdict != nil {
		v := *d.Verdict
		d.Verdict = &v
	}
	return d
}

// Moderation queue

func (s *Store) CreateFlag(_ context.Context, f model.FlaggedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch subject := f.Subject.(type) {
	case model.PendingPost:
	case model.ExistingPost:
		if _, ok := s.posts[subject.PostID]; !ok {
			return notFound("post", subject.PostID)
		}
	default:
		return fmt.Errorf("flagged content %s has no subject", f.ID)
	}
	s.flags[f.ID] = f
	s.flagOrder = append(s.flagOrder, f.ID)
	return nil
}

func (s *Store) GetFlag(_ context.Context, id uuid.UUID) (model.FlaggedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flags[id]
	if !ok {
		return model.FlaggedContent{}, notFound("flagged content", id)
	}
	return f, nil
}

func (s *Store) ListFlags(_ context.Context, p util.PageParams) ([]model.FlaggedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.FlaggedContent, 0, len(s.flags))
	for _, id := range s.flagOrder {
		if f, ok := s.flags[id]; ok {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FlaggedAt.Before(out[j].FlaggedAt) })
	return page(out, p), nil
}

func (s *Store) DeleteFlag(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flags[id]; !ok {
		return notFound("flagged content", id)
	}
	delete(s.flags, id)
	return nil
}

// PublishPending turns a held draft into a live post and drops its queue
// entry in one step.
func (s *Store) PublishPending(_ context.Context, flagID uuid.UUID, post model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flags[flagID]
	if !ok {
		return notFound("flagged content", flagID)
	}
	if f.Subject.Kind() != model.FlagPending {
		return fmt.Errorf("flagged content %s is not a pending draft: %w", flagID, apperr.ErrInvalidState)
	}
	if err := s.insertPost(post); err != nil {
		return err
	}
	delete(s.flags, flagID)
	return nil
}
