// Package app assembles the companion core from configuration.
package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/config"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/dispatch"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/emotion"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/orchestrator"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/relationship"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/services"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

// App owns every long-lived component. Close releases them in reverse order.
type App struct {
	Store        store.Store
	Health       *store.HealthChecker
	Memory       *services.MemoryService
	Relationship *relationship.Machine
	Dispatcher   *dispatch.Dispatcher
	Orchestrator *orchestrator.Orchestrator

	cancel context.CancelFunc
	log    zerolog.Logger
}

// New builds the component graph and starts the background health checker.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := NewStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	gen, err := NewGenerator(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	health := store.NewHealthChecker(st, log, cfg.HealthProbeTimeout)
	go health.Start(bgCtx, cfg.HealthInterval)

	speech, render := NewCollaborators(cfg, log)
	exec := dispatch.NewExecutor(dispatch.Options{
		Shards:      cfg.DispatchShards,
		QueueSize:   cfg.DispatchQueueSize,
		MaxAttempts: cfg.DispatchMaxAttempts,
		ErrorHandler: func(userID string, err error) {
			log.Warn().Err(err).Str("user_id", userID).Msg("Directive delivery gave up")
		},
	}, log)
	disp := dispatch.NewDispatcher(exec, speech, render, cfg.CollaboratorTimeout, log)

	mem := services.NewMemoryService(st,
		services.WithHistoryLimit(cfg.HistoryLimit),
		services.WithTrendWindow(cfg.TrendWindow),
		services.WithLogger(log),
	)
	machine := relationship.New(st.Relationships(), log)

	orch, err := orchestrator.New(orchestrator.Deps{
		Classifier:     emotion.New(),
		Generator:      gen,
		Memory:         mem,
		Relationship:   machine,
		Dispatcher:     disp,
		Health:         health,
		Logger:         log,
		EventThreshold: cfg.EventThreshold,
	})
	if err != nil {
		cancel()
		_ = disp.Close()
		_ = st.Close()
		return nil, err
	}

	log.Info().Str("store_driver", cfg.StoreDriver).Msg("Companion core ready")
	return &App{
		Store:        st,
		Health:       health,
		Memory:       mem,
		Relationship: machine,
		Dispatcher:   disp,
		Orchestrator: orch,
		cancel:       cancel,
		log:          log,
	}, nil
}

// Close drains pending deliveries, stops the health checker and closes the store.
func (a *App) Close() error {
	a.cancel()
	err := a.Dispatcher.Close()
	if cerr := a.Store.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	a.log.Info().Msg("Companion core stopped")
	return err
}
