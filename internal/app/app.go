package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform/internal/cache"
	"eduplatform/internal/config"
	"eduplatform/internal/repository"
	"eduplatform/internal/service"
)

// App holds the storage dependencies selected by configuration
type App struct {
	TestRepo    repository.TestRepo
	AttemptRepo repository.AttemptRepo
	MeetingRepo repository.MeetingRepo
	InviteRepo  repository.InviteRepo
	UserRepo    repository.UserRepo
	ChatHistory service.ChatHistory
	Leaderboard cache.LeaderboardCache

	closers []func(context.Context) error
}

// Open connects the configured storage and chat backends
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}
	if err := a.openStorage(ctx, cfg, logger); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.openChat(ctx, cfg, logger); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var backend repository.Backend
	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Disconnect)
		logger.Info("connected to mongo", "db", cfg.MongoDB)

		db := client.Database(cfg.MongoDB)
		repository.EnsureIndexes(ctx, db)
		a.useMongo(db)
		return nil

	case config.StorageSQLite:
		b, err := repository.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return err
		}
		backend = b
		logger.Info("using sqlite storage", "path", cfg.SQLitePath)

	case config.StorageMemory:
		backend = repository.NewMemoryBackend()
		logger.Warn("using in-memory storage, data is lost on exit")

	default:
		b, err := repository.NewFileBackend(cfg.DataFile)
		if err != nil {
			return err
		}
		backend = b
		logger.Info("using file storage", "path", cfg.DataFile)
	}

	store := repository.NewDocStore(backend)
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	a.TestRepo = repository.NewTestRepo(store)
	a.AttemptRepo = repository.NewAttemptRepo(store)
	a.MeetingRepo = repository.NewMeetingRepo(store)
	a.InviteRepo = repository.NewInviteRepo(store)
	a.UserRepo = repository.NewUserRepo(store)
	return nil
}

func (a *App) useMongo(db *mongo.Database) {
	a.TestRepo = repository.NewMongoTestRepo(db)
	a.AttemptRepo = repository.NewMongoAttemptRepo(db)
	a.MeetingRepo = repository.NewMongoMeetingRepo(db)
	a.InviteRepo = repository.NewMongoInviteRepo(db)
	a.UserRepo = repository.NewMongoUserRepo(db)
}

func (a *App) openChat(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.ChatDriver == config.ChatRedis {
		// Remove redis:// prefix if present
		addr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			return errors.Wrap(err, "ping redis")
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		logger.Info("connected to redis", "addr", addr)

		a.ChatHistory = cache.NewChatCache(rdb)
		a.Leaderboard = cache.NewLeaderboardCache(rdb)
		return nil
	}

	chat, err := repository.NewFileChatRepo(cfg.ChatFile)
	if err != nil {
		return err
	}
	a.ChatHistory = chat
	a.Leaderboard = cache.NewMemoryLeaderboard()
	logger.Info("using file chat history", "path", cfg.ChatFile)
	return nil
}

// Close releases every opened backend in reverse order
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
