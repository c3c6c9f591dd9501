package deps

import (
	"context"
	"time"

	"github.com/bwise1/clarity/config"
	"github.com/bwise1/clarity/internal/cache"
	"github.com/bwise1/clarity/internal/db"
	"github.com/bwise1/clarity/internal/dispute"
	"github.com/bwise1/clarity/internal/flows"
	"github.com/bwise1/clarity/internal/identity"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/internal/moderation"
	"github.com/bwise1/clarity/internal/store"
	"github.com/bwise1/clarity/internal/store/memstore"
	"github.com/bwise1/clarity/internal/trust"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/storage"
	"github.com/bwise1/clarity/util/websockets"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store is everything the service reads and writes. The Postgres store and
// the in-memory store both satisfy it.
type Store interface {
	dispute.Store
	moderation.Store
	trust.Store
	UpsertGoogleUser(ctx context.Context, u model.User) (model.User, error)
	ListPosts(ctx context.Context, p util.PageParams) ([]model.Post, error)
	ListPostsAboutUser(ctx context.Context, userID uuid.UUID, p util.PageParams) ([]model.Post, error)
	VotePost(ctx context.Context, postID, userID uuid.UUID, voteType string) (model.Post, error)
	AddPostComment(ctx context.Context, c model.Comment) (model.Post, error)
	ListPostComments(ctx context.Context, postID uuid.UUID) ([]model.Comment, error)
}

// AI is the set of model-backed judgements the workflows depend on.
type AI interface {
	moderation.Classifier
	moderation.SentimentAnalyzer
	trust.Scorer
}

type Dependencies struct {
	Logger      *zap.SugaredLogger
	DB          *db.DB
	Store       Store
	Disputes    *dispute.Service
	Moderation  *moderation.Gate
	Identity    identity.Provider
	RateLimiter *cache.RateLimiter
	Cloudinary  *storage.Cloudinary
	WebSocket   *websockets.WebSocketManager
}

type Options struct {
	// InMemory keeps all data in process instead of Postgres.
	InMemory bool
}

func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, opts Options) (*Dependencies, error) {
	d := &Dependencies{Logger: logger}

	if opts.InMemory {
		logger.Warn("using in-memory store, data will not survive a restart")
		d.Store = memstore.New()
	} else {
		database, err := db.New(cfg.Dsn, logger)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to database")
		}
		d.DB = database
		d.Store = store.New(database)
	}

	var ai AI = flows.Offline{}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, every post will wait for a moderator")
	} else {
		client, err := flows.New(ctx, flows.Options{
			APIKey:            cfg.GeminiAPIKey,
			Model:             cfg.GeminiModel,
			RequestsPerSecond: cfg.AIRequestsPerSecond,
		}, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		ai = client
	}

	classifier, err := moderation.NewCachedClassifier(ai, cfg.ClassificationCache)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.WebSocket = websockets.NewWebSocketManager(logger)
	d.Disputes = dispute.NewService(d.Store, d.WebSocket, logger)
	d.Moderation = moderation.NewGate(
		d.Store,
		classifier,
		ai,
		trust.NewAdjuster(ai, d.Store, logger),
		moderation.NewPrescreen(cfg.ModerationBlocklist),
		logger,
	)
	d.Identity = identity.NewGoogle(cfg.GoogleClientID)

	if cfg.RedisURL != "" {
		limiter, err := cache.NewRateLimiter(cfg.RedisURL, time.Hour)
		if err != nil {
			logger.Warnw("redis unavailable, rate limiting disabled", "error", err)
		} else {
			d.RateLimiter = limiter
		}
	}

	cld, err := storage.NewCloudinary(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Cloudinary = cld

	return d, nil
}

func (d *Dependencies) Close() {
	if d.RateLimiter != nil {
		if err := d.RateLimiter.Close(); err != nil {
			d.Logger.Warnw("closing redis client", "error", err)
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

var (
	_ Store = (*store.Postgres)(nil)
	_ Store = (*memstore.Store)(nil)
	_ AI    = (*flows.Client)(nil)
	_ AI    = flows.Offline{}
)
