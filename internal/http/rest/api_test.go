package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwise1/clarity/config"
	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/cache"
	deps "github.com/bwise1/clarity/internal/debs"
	"github.com/bwise1/clarity/internal/dispute"
	"github.com/bwise1/clarity/internal/flows"
	"github.com/bwise1/clarity/internal/identity"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/internal/moderation"
	"github.com/bwise1/clarity/internal/store/memstore"
	"github.com/bwise1/clarity/internal/trust"
	"github.com/bwise1/clarity/util/values"
	"github.com/bwise1/clarity/util/websockets"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAI struct {
	harmful bool
}

func (f *fakeAI) ClassifyHarmfulContent(context.Context, string) (flows.Classification, error) {
	if f.harmful {
		return flows.Classification{IsHarmful: true, Reason: "abusive language"}, nil
	}
	return flows.Classification{}, nil
}

func (f *fakeAI) AnalyzeSentiment(context.Context, string) (flows.Sentiment, error) {
	return flows.Sentiment{Score: -0.5}, nil
}

func (f *fakeAI) SuggestTrustScore(_ context.Context, current int, _ model.PostType, _ float64) (flows.TrustSuggestion, error) {
	return flows.TrustSuggestion{NewScore: current - 5}, nil
}

type fakeIdentity struct {
	profile identity.Profile
	err     error
}

func (f fakeIdentity) Resolve(context.Context, string) (identity.Profile, error) {
	return f.profile, f.err
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	api     *API
	handler http.Handler
	store   *memstore.Store
	ai      *fakeAI
	redis   *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	limiter, err := cache.NewRateLimiter("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	logger := zap.NewNop().Sugar()
	store := memstore.New()
	ai := &fakeAI{}

	ws := websockets.NewWebSocketManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ws.Run(ctx)

	d := &deps.Dependencies{
		Logger:   logger,
		Store:    store,
		Disputes: dispute.NewService(store, ws, logger),
		Moderation: moderation.NewGate(store, ai, ai,
			trust.NewAdjuster(ai, store, logger),
			moderation.NewPrescreen(nil),
			logger,
		),
		Identity: fakeIdentity{profile: identity.Profile{
			Subject:   "g-1",
			Email:     "Ada.Lovelace@example.com",
			Name:      "Ada Lovelace",
			AvatarURL: "https://example.com/ada.png",
		}},
		RateLimiter: limiter,
		WebSocket:   ws,
	}
	api := &API{
		Config: &config.Config{
			JwtSecret:     "test-secret",
			JwtExpires:    "1h",
			PostRateLimit: 3,
			FlagRateLimit: 5,
		},
		Deps: d,
	}
	return &testServer{api: api, handler: api.setUpServerHandler(), store: store, ai: ai, redis: mr}
}

func (s *testServer) user(t *testing.T, username string, role model.Role) (model.User, string) {
	t.Helper()
	u := model.User{
		ID:         uuid.New(),
		Name:       username,
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		TrustScore: model.DefaultTrustScore,
	}
	require.NoError(t, s.store.CreateUser(context.Background(), u))
	token, _, err := s.api.createToken(u.ID.String())
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, values.Success, env.Status)
}

func TestRequireLogin(t *testing.T) {
	s := newTestServer(t)
	u, token := s.user(t, "ada", model.RoleUser)

	code, _ := s.do(t, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID.String(),
		"exp": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Hour).Unix(),
		"typ": "access",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	code, env := s.do(t, http.MethodGet, "/users/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, values.TokenExpired, env.Status)

	code, env = s.do(t, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[model.User](t, env.Data)
	assert.Equal(t, u.ID, me.ID)
	assert.Equal(t, model.DefaultTrustScore, me.TrustScore)
}

type unavailableUsers struct {
	*memstore.Store
}

func (unavailableUsers) GetUser(context.Context, uuid.UUID) (model.User, error) {
	return model.User{}, apperr.Dependency("postgres", errors.New("connection refused"))
}

func TestRequireLoginUserLookup(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "ada", model.RoleUser)

	stranger, _, err := s.api.createToken(uuid.NewString())
	require.NoError(t, err)
	code, env := s.do(t, http.MethodGet, "/users/me", stranger, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "user-not-found", env.Message)

	s.api.Deps.Store = unavailableUsers{s.store}
	code, env = s.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, values.Unavailable, env.Status)
}

func TestLoginWithGoogle(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/auth/google/login", "", model.GoogleLoginRequest{AccessToken: "ya29.token"})
	require.Equal(t, http.StatusOK, code, env.Message)
	login := decode[model.LoginResponse](t, env.Data)
	assert.Equal(t, "ada.lovelace", login.User.Username)
	assert.Equal(t, model.RoleUser, login.User.Role)
	require.NotEmpty(t, login.Token)

	code, env = s.do(t, http.MethodGet, "/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, login.User.ID, decode[model.User](t, env.Data).ID)

	// signing in again finds the same account
	_, env = s.do(t, http.MethodPost, "/auth/google/login", "", model.GoogleLoginRequest{AccessToken: "ya29.token"})
	assert.Equal(t, login.User.ID, decode[model.LoginResponse](t, env.Data).User.ID)
}

func TestLoginWithGoogleAvoidsTakenUsername(t *testing.T) {
	s := newTestServer(t)
	taken := model.User{ID: uuid.New(), Username: "ada.lovelace", Email: "someone.else@example.com"}
	require.NoError(t, s.store.CreateUser(context.Background(), taken))

	code, env := s.do(t, http.MethodPost, "/auth/google/login", "", model.GoogleLoginRequest{AccessToken: "ya29.token"})
	require.Equal(t, http.StatusOK, code, env.Message)
	login := decode[model.LoginResponse](t, env.Data)
	assert.NotEqual(t, taken.ID, login.User.ID)
	assert.Contains(t, login.User.Username, "ada.lovelace_")
}

func TestLoginWithGoogleRejectsUnverifiedAccount(t *testing.T) {
	s := newTestServer(t)
	s.api.Deps.Identity = fakeIdentity{err: identity.ErrUnverifiedEmail}

	code, env := s.do(t, http.MethodPost, "/auth/google/login", "", model.GoogleLoginRequest{AccessToken: "ya29.token"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, identity.ErrUnverifiedEmail.Error(), env.Message)
}

func TestPublicProfileHidesEmail(t *testing.T) {
	s := newTestServer(t)
	u, _ := s.user(t, "grace", model.RoleUser)

	code, env := s.do(t, http.MethodGet, "/users/"+u.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, code)
	profile := decode[model.User](t, env.Data)
	assert.Equal(t, "grace", profile.Username)
	assert.Empty(t, profile.Email)

	code, _ = s.do(t, http.MethodGet, "/users/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreatePostPublishesAndAdjustsTrust(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "writer", model.RoleUser)
	target, _ := s.user(t, "acme", model.RoleUser)

	code, env := s.do(t, http.MethodPost, "/posts", token, model.PostDraft{
		Type:       model.PostReport,
		EntityName: "@acme",
		Text:       "Never showed up",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	post := decode[model.Post](t, env.Data)
	require.NotNil(t, post.TargetUserID)
	assert.Equal(t, target.ID, *post.TargetUserID)
	assert.Equal(t, -0.5, post.SentimentScore)

	updated, err := s.store.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTrustScore-5, updated.TrustScore)

	code, env = s.do(t, http.MethodGet, "/users/"+target.ID.String()+"/posts", "", nil)
	require.Equal(t, http.StatusOK, code)
	about := decode[struct {
		Items []model.Post `json:"items"`
	}](t, env.Data)
	require.Len(t, about.Items, 1)
	assert.Equal(t, post.ID, about.Items[0].ID)
}

func TestCreatePostHeldForReview(t *testing.T) {
	s := newTestServer(t)
	s.ai.harmful = true
	_, token := s.user(t, "writer", model.RoleUser)

	code, env := s.do(t, http.MethodPost, "/posts", token, model.PostDraft{
		Type:       model.PostReport,
		EntityName: "acme",
		Text:       "something nasty",
	})
	require.Equal(t, http.StatusAccepted, code, env.Message)
	assert.Equal(t, values.Held, env.Status)
	held := decode[model.HeldSubmission](t, env.Data)
	assert.Equal(t, "abusive language", held.Reason)
	assert.NotEqual(t, uuid.Nil, held.FlaggedID)

	_, env = s.do(t, http.MethodGet, "/posts", "", nil)
	list := decode[struct {
		Items []model.Post `json:"items"`
	}](t, env.Data)
	assert.Empty(t, list.Items)
}

func TestCreatePostValidates(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "writer", model.RoleUser)

	code, _ := s.do(t, http.MethodPost, "/posts", token, model.PostDraft{Type: "rant", EntityName: "acme", Text: "hi"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/posts", token, model.PostDraft{Type: model.PostReport, EntityName: "acme", Text: "   "})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreatePostRateLimited(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "writer", model.RoleUser)
	draft := model.PostDraft{Type: model.PostEndorsement, EntityName: "acme", Text: "Great work"}

	for i := 0; i < s.api.Config.PostRateLimit; i++ {
		code, env := s.do(t, http.MethodPost, "/posts", token, draft)
		require.Equal(t, http.StatusCreated, code, env.Message)
	}
	code, env := s.do(t, http.MethodPost, "/posts", token, draft)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, values.TooManyRequest, env.Status)
}

func TestRateLimitFailsOpen(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "writer", model.RoleUser)
	s.redis.Close()

	code, env := s.do(t, http.MethodPost, "/posts", token, model.PostDraft{Type: model.PostEndorsement, EntityName: "acme", Text: "Great work"})
	assert.Equal(t, http.StatusCreated, code, env.Message)
}

func TestPostVotesAndComments(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "writer", model.RoleUser)
	_, reader := s.user(t, "reader", model.RoleUser)

	_, env := s.do(t, http.MethodPost, "/posts", token, model.PostDraft{Type: model.PostEndorsement, EntityName: "acme", Text: "Great work"})
	post := decode[model.Post](t, env.Data)
	base := "/posts/" + post.ID.String()

	code, env := s.do(t, http.MethodPost, base+"/votes", reader, model.PostVoteRequest{VoteType: model.VoteUp})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, 1, decode[model.Post](t, env.Data).UpvotesCount)

	_, env = s.do(t, http.MethodPost, base+"/votes", reader, model.PostVoteRequest{VoteType: model.VoteDown})
	voted := decode[model.Post](t, env.Data)
	assert.Equal(t, 0, voted.UpvotesCount)
	assert.Equal(t, 1, voted.DownvotesCount)

	code, _ = s.do(t, http.MethodPost, base+"/votes", reader, model.PostVoteRequest{VoteType: "sideways"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, base+"/comments", reader, model.CommentRequest{Content: "<b>Agreed</b>"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Agreed", decode[model.Comment](t, env.Data).Comment)

	code, env = s.do(t, http.MethodGet, base+"/comments", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]model.Comment](t, env.Data), 1)

	code, env = s.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[model.Post](t, env.Data).CommentsCount)
}

func TestDisputeLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, author := s.user(t, "writer", model.RoleUser)
	_, voter := s.user(t, "voter", model.RoleUser)
	_, mod := s.user(t, "mod", model.RoleModerator)

	_, env := s.do(t, http.MethodPost, "/posts", author, model.PostDraft{Type: model.PostReport, EntityName: "acme", Text: "Late again"})
	post := decode[model.Post](t, env.Data)

	code, env := s.do(t, http.MethodPost, "/posts/"+post.ID.String()+"/disputes", voter, model.CreateDisputeRequest{
		Title:       "Unfair report",
		Description: "They were on time",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	d := decode[model.Dispute](t, env.Data)
	assert.Equal(t, model.DisputeVoting, d.Status)
	assert.Len(t, d.Parties, 2)
	base := "/disputes/" + d.ID.String()

	code, env = s.do(t, http.MethodPost, base+"/votes", voter, model.CastVoteRequest{Option: "Overturn"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, 1, decode[model.Dispute](t, env.Data).Poll.TotalVotes())

	// a repeat vote is accepted and changes nothing
	code, env = s.do(t, http.MethodPost, base+"/votes", voter, model.CastVoteRequest{Option: "Uphold"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[model.Dispute](t, env.Data).Poll.TotalVotes())

	code, _ = s.do(t, http.MethodPost, base+"/votes", author, model.CastVoteRequest{Option: "Maybe"})
	assert.Equal(t, http.StatusBadRequest, code)

	verdict := model.SubmitVerdictRequest{Decision: "Overturned", Reason: "Evidence shows they arrived on time"}
	code, _ = s.do(t, http.MethodPost, base+"/verdict", voter, verdict)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodPost, base+"/verdict", mod, verdict)
	require.Equal(t, http.StatusOK, code, env.Message)
	closed := decode[model.Dispute](t, env.Data)
	assert.Equal(t, model.DisputeClosed, closed.Status)
	require.NotNil(t, closed.Verdict)
	assert.Equal(t, "mod", closed.Verdict.Moderator.Username)

	code, _ = s.do(t, http.MethodPost, base+"/votes", author, model.CastVoteRequest{Option: "Uphold"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, base+"/verdict", mod, model.SubmitVerdictRequest{Decision: "Upheld", Reason: "Changed my mind"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, base+"/comments", author, model.CommentRequest{Content: "Fair enough"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[model.DisputeDetail](t, env.Data)
	assert.Equal(t, "Overturned", detail.Dispute.Verdict.Decision)
	assert.Equal(t, 1, detail.Dispute.CommentCount)
	assert.Len(t, detail.Comments, 1)
}

func TestListDisputes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "writer", model.RoleUser)

	_, env := s.do(t, http.MethodPost, "/posts", token, model.PostDraft{Type: model.PostReport, EntityName: "acme", Text: "Late again"})
	post := decode[model.Post](t, env.Data)
	for i := 0; i < 2; i++ {
		code, env := s.do(t, http.MethodPost, "/posts/"+post.ID.String()+"/disputes", token, model.CreateDisputeRequest{Title: "t", Description: "d"})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}

	code, env := s.do(t, http.MethodGet, "/disputes?status=voting&pageSize=1", "", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Items []model.Dispute `json:"items"`
		Next  string          `json:"next"`
	}](t, env.Data)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, "/disputes?page=2&pageSize=1&status=voting", list.Next)

	code, _ = s.do(t, http.MethodGet, "/disputes?status=archived", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/disputes/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestModerationQueueApprove(t *testing.T) {
	s := newTestServer(t)
	s.ai.harmful = true
	_, author := s.user(t, "writer", model.RoleUser)
	_, mod := s.user(t, "mod", model.RoleModerator)

	_, env := s.do(t, http.MethodPost, "/posts", author, model.PostDraft{Type: model.PostReport, EntityName: "acme", Text: "borderline"})
	held := decode[model.HeldSubmission](t, env.Data)

	code, _ := s.do(t, http.MethodGet, "/moderation/queue", author, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/moderation/queue", mod, nil)
	require.Equal(t, http.StatusOK, code)
	queue := decode[struct {
		Items []model.FlaggedContent `json:"items"`
	}](t, env.Data)
	require.Len(t, queue.Items, 1)
	assert.Equal(t, held.FlaggedID, queue.Items[0].ID)

	code, env = s.do(t, http.MethodPost, "/moderation/queue/"+held.FlaggedID.String()+"/approve", mod, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	post := decode[model.Post](t, env.Data)

	code, _ = s.do(t, http.MethodGet, "/posts/"+post.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/moderation/queue/"+held.FlaggedID.String()+"/approve", mod, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFlagDismissAndRemovePost(t *testing.T) {
	s := newTestServer(t)
	_, author := s.user(t, "writer", model.RoleUser)
	_, reader := s.user(t, "reader", model.RoleUser)
	_, mod := s.user(t, "mod", model.RoleModerator)

	_, env := s.do(t, http.MethodPost, "/posts", author, model.PostDraft{Type: model.PostReport, EntityName: "acme", Text: "Late again"})
	post := decode[model.Post](t, env.Data)

	code, env := s.do(t, http.MethodPost, "/posts/"+post.ID.String()+"/flags", reader, model.FlagPostRequest{Reason: "spam"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	flag := decode[model.FlaggedContent](t, env.Data)
	require.NotNil(t, flag.FlaggedBy)

	// a live post cannot be removed through its flag
	code, _ = s.do(t, http.MethodPost, "/moderation/queue/"+flag.ID.String()+"/remove", mod, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/moderation/queue/"+flag.ID.String()+"/dismiss", mod, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/moderation/posts/"+post.ID.String(), mod, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/posts/"+post.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorStatus(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"not found":    {apperr.ErrNotFound, values.NotFound},
		"bad option":   {apperr.ErrInvalidOption, values.BadRequestBody},
		"bad input":    {apperr.ErrInvalidInput, values.BadRequestBody},
		"closed":       {apperr.ErrInvalidState, values.Conflict},
		"taken":        {apperr.ErrConflict, values.Conflict},
		"forbidden":    {apperr.ErrForbidden, values.NotAllowed},
		"rate limited": {apperr.ErrRateLimited, values.TooManyRequest},
		"dependency":   {apperr.Dependency("store", errors.New("connection reset")), values.Unavailable},
		"unknown":      {errors.New("boom"), values.Error},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorStatus(tc.err))
		})
	}
}
