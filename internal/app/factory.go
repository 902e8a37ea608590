package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/collaborator"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/config"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/response"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/cache"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/postgres"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/sqlite"
)

// NewStore creates the store selected by cfg.StoreDriver and, when a Redis
// address is configured, puts the relationship cache in front of it.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		st, err = sqlite.New(ctx, cfg.SQLitePath, log)
	case config.DriverPostgres:
		st, err = postgres.New(ctx, cfg.PostgresDSN, log)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RedisAddr == "" {
		return st, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	// Redis is optional: a dead cache only costs misses, so don't block startup on it.
	go func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis cache unreachable; serving from the database")
		} else {
			log.Debug().Str("addr", cfg.RedisAddr).Msg("Redis cache connected")
		}
	}()
	return cache.Wrap(st, rdb, cfg.RedisTTL, log), nil
}

// NewGenerator loads the response table from cfg.ResponseTable, or the built-in one.
func NewGenerator(cfg *config.Config) (*response.Generator, error) {
	if cfg.ResponseTable == "" {
		return response.New()
	}
	return response.NewFromFile(cfg.ResponseTable)
}

// NewCollaborators returns HTTP clients for the configured URLs and
// log-only stand-ins for the rest.
func NewCollaborators(cfg *config.Config, log zerolog.Logger) (collaborator.Speech, collaborator.Renderer) {
	var (
		speech collaborator.Speech   = collaborator.LogSpeech{Log: log}
		render collaborator.Renderer = collaborator.LogRenderer{Log: log}
	)
	if cfg.SpeechURL != "" {
		speech = collaborator.NewHTTPSpeech(cfg.SpeechURL, cfg.CollaboratorTimeout)
	}
	if cfg.RenderURL != "" {
		render = collaborator.NewHTTPRenderer(cfg.RenderURL, cfg.CollaboratorTimeout)
	}
	return speech, render
}
