package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/infra/file"
	"mcq-quiz-service/internal/infra/memory"
	pgstore "mcq-quiz-service/internal/infra/postgres"
	redisstore "mcq-quiz-service/internal/infra/redis"
	"mcq-quiz-service/internal/infra/sqlite"
)

// backends holds the connections opened for the configured storage.
type backends struct {
	store app.DocumentStore
	redis *redis.Client
	pool  *pgxpool.Pool
	db    *sql.DB
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

// openBackends connects the document store selected by cfg.Storage.Driver.
// A configured Redis address is connected regardless of the driver so it can
// serve as the question cache.
func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		b.store = memory.NewDocumentStore()
	case config.DriverFile:
		store, err := file.NewDocumentStore(cfg.Storage.Dir)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.store = store
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.db = db
		b.store = sqlite.NewDocumentStore(db)
	case config.DriverRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("storage driver redis needs redis.addr")
		}
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.store = redisstore.NewDocumentStore(b.redis, "", 0)
	case config.DriverPostgres:
		if cfg.Postgres.URL == "" {
			b.Close()
			return nil, fmt.Errorf("storage driver postgres needs postgres.url")
		}
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		b.store = pgstore.NewDocumentStore(pool)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	log.Info("document store ready", zap.String("driver", cfg.Storage.Driver))
	return b, nil
}

// questionRepository layers a TTL cache over the stored question set: Redis
// when connected, process memory otherwise.
func questionRepository(b *backends, cfg config.Config) app.QuestionRepository {
	base := app.NewDocumentQuestions(b.store)
	ttl := config.TTLDuration(cfg.Quiz.TTL, 0)
	if ttl <= 0 {
		return base
	}
	if b.redis != nil {
		return redisstore.NewQuestionRepository(b.redis, base, ttl)
	}
	return memory.NewQuestionRepository(base, ttl)
}

// sessionStore picks where play keeps its saved session: Redis when an
// address is configured, where redis.ttl expires abandoned sessions, and
// files under client.state_dir otherwise.
func sessionStore(ctx context.Context, cfg config.Config) (app.DocumentStore, func(), error) {
	if cfg.Redis.Addr == "" {
		store, err := file.NewDocumentStore(cfg.Client.StateDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	store := redisstore.NewDocumentStore(client, "", config.TTLDuration(cfg.Redis.TTL, 0))
	return store, func() { _ = client.Close() }, nil
}
