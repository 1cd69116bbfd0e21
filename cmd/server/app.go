// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/api"
	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/auth"
	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/config"
	"github.com/tomtom215/shopsense/internal/enrichment"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/experiment"
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/scoring"
	"github.com/tomtom215/shopsense/internal/store"
	"github.com/tomtom215/shopsense/internal/supervisor"
	"github.com/tomtom215/shopsense/internal/supervisor/services"
	"github.com/tomtom215/shopsense/internal/websocket"
)

// app owns every long-lived component. Components are built in dependency
// order by newApp and closed in reverse by close.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	kv          store.KV
	bus         *events.Bus
	sched       *schedule.CronScheduler
	catalog     *catalog.Catalog
	enricher    *enrichment.Client
	tracker     *behavior.Tracker
	scorer      *scoring.Engine
	recommender *recommend.Engine
	experiments *experiment.Controller
	reorderer   *reranking.Engine

	// trail is nil when the audit trail is disabled.
	trail *audit.Logger
	hub   *websocket.Hub

	handler *api.Handler
	router  http.Handler

	// closers run in reverse order on shutdown.
	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// newApp builds and opens every component. On failure everything opened
// so far is closed again.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	built := false
	defer func() {
		if !built {
			a.close(context.Background())
		}
	}()

	var err error
	a.kv, err = store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.onClose("store", func(context.Context) error { return a.kv.Close() })
	logger.Info().Str("type", string(cfg.Store.Type)).Str("path", cfg.Store.Path).Msg("store opened")

	a.bus = events.NewBus(cfg.Events, logger)
	a.onClose("event-bus", func(context.Context) error { return a.bus.Close() })

	a.sched = schedule.NewCronScheduler(logger)

	source, carts, err := newCatalogSource(cfg.Catalog, logger)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog.New(source, carts, a.bus, a.sched, logger)
	a.enricher = enrichment.New(cfg.Enrichment, nil, logger)

	a.tracker = behavior.NewTracker(cfg.Behavior, a.kv, a.catalog, a.bus, a.sched, logger)
	a.scorer = scoring.NewEngine(cfg.Scoring, a.tracker, a.catalog, a.enricher, a.bus, a.sched, logger)

	models := recommend.Models{
		Collaborative: algorithms.NewCollaborative(cfg.Collaborative, a.sched),
		Basket:        algorithms.NewBasket(cfg.Basket, a.sched),
	}
	a.recommender, err = recommend.NewEngine(cfg.Recommend, models, a.tracker, a.scorer, a.catalog, a.bus, a.sched, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommend engine: %w", err)
	}

	a.experiments, err = experiment.NewController(cfg.Experiment, a.kv, a.bus, a.sched, logger)
	if err != nil {
		return nil, fmt.Errorf("create experiment controller: %w", err)
	}

	a.reorderer, err = reranking.NewEngine(cfg.Reorder, a.tracker, a.scorer, a.catalog, a.recommender,
		a.enricher, a.experiments, a.bus, a.sched, logger)
	if err != nil {
		return nil, fmt.Errorf("create reorder engine: %w", err)
	}

	if cfg.Audit.Enabled {
		a.trail = audit.NewLogger(cfg.Audit, newAuditStore(cfg.Audit, a.kv), a.sched, logger)
		a.onClose("audit-trail", func(context.Context) error { return a.trail.Close() })
	}

	a.hub = websocket.NewHub(cfg.Stream, cfg.Server.CORSOrigins, logger)

	if err := a.subscribe(); err != nil {
		return nil, err
	}

	a.tracker.Open()
	a.onClose("behavior-tracker", a.tracker.Close)
	a.scorer.Open()
	a.onClose("scoring-engine", func(context.Context) error { a.scorer.Close(); return nil })
	a.recommender.Open()
	a.onClose("recommend-engine", func(context.Context) error { a.recommender.Close(); return nil })
	a.experiments.Open(context.Background())
	a.onClose("experiment-controller", a.experiments.Close)

	deps := api.Dependencies{
		Tracker:     a.tracker,
		Scorer:      a.scorer,
		Recommender: a.recommender,
		Reorderer:   a.reorderer,
		Experiments: a.experiments,
		Catalog:     a.catalog,
		Stream:      a.hub,
	}
	if a.trail != nil {
		deps.Audit = a.trail
	}
	a.handler, err = api.NewHandler(deps, cfg.Server.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("create api handler: %w", err)
	}
	mc := middlewareConfig(cfg.Server)
	mc.Operator, err = operatorGuard(cfg.Auth)
	if err != nil {
		return nil, err
	}
	a.router = api.NewRouter(a.handler, mc)

	built = true
	return a, nil
}

func (a *app) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// close shuts components down in reverse construction order. Errors are
// logged and do not stop later closers.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error().Err(err).Str("component", c.name).Msg("close failed")
			continue
		}
		a.logger.Debug().Str("component", c.name).Msg("closed")
	}
	a.closers = nil
}

// subscribe wires the event flows between components.
func (a *app) subscribe() error {
	subs := []struct {
		name string
		fn   func() error
	}{
		{"behavior-invalidate", func() error {
			return events.Subscribe(a.bus, "behavior-invalidate", func(_ context.Context, ev events.BehaviorTracked) error {
				// Low-impact events wait for the periodic recompute.
				if !ev.HighImpact {
					return nil
				}
				a.scorer.Invalidate(ev.SessionID)
				a.recommender.Invalidate(ev.SessionID)
				return nil
			})
		}},
		{"experiment-outcomes", func() error {
			return events.Subscribe(a.bus, "experiment-outcomes", func(ctx context.Context, ev events.BehaviorTracked) error {
				a.experiments.Record(ctx, behavior.Event{
					SessionID: ev.SessionID,
					ProductID: ev.ProductID,
					Kind:      behavior.Kind(ev.Kind),
					Page:      ev.Page,
					Duration:  ev.Duration,
					Value:     ev.Value,
					At:        ev.At,
				})
				return nil
			})
		}},
		{"stream-scores", func() error {
			return events.Subscribe(a.bus, "stream-scores", func(_ context.Context, ev events.ScoresUpdated) error {
				a.hub.Send(ev.SessionID, websocket.MessageTypeScoresUpdated, ev)
				return nil
			})
		}},
		{"stream-variants", func() error {
			return events.Subscribe(a.bus, "stream-variants", func(_ context.Context, ev events.VariantResolved) error {
				a.hub.Send(ev.SessionID, websocket.MessageTypeVariantAssigned, ev)
				return nil
			})
		}},
		{"stream-catalog", func() error {
			return events.Subscribe(a.bus, "stream-catalog", func(_ context.Context, ev events.CatalogRefreshed) error {
				a.hub.Broadcast(websocket.MessageTypeCatalogRefreshed, ev)
				return nil
			})
		}},
		{"catalog-rebuild", func() error {
			return events.Subscribe(a.bus, "catalog-rebuild", func(ctx context.Context, ev events.CatalogRefreshed) error {
				a.scorer.InvalidateAll()
				return rebuildModels(a.recommender)(ctx)
			})
		}},
		{"experiment-completed", func() error {
			return events.Subscribe(a.bus, "experiment-completed", func(ctx context.Context, ev events.ExperimentCompleted) error {
				a.logger.Info().
					Str("experiment_id", ev.ExperimentID).
					Str("winner", ev.WinnerID).
					Float64("lift", ev.Lift).
					Msg("experiment completed")
				a.hub.Broadcast(websocket.MessageTypeExperimentCompleted, ev)
				if a.trail != nil {
					a.trail.ExperimentCompleted(ctx, ev)
				}
				return nil
			})
		}},
	}
	for _, s := range subs {
		if err := s.fn(); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.name, err)
		}
	}
	return nil
}

// newAuditStore picks the audit backend. The kv backend shares the
// profile store so the trail persists alongside it.
func newAuditStore(cfg audit.Config, kv store.KV) audit.Store {
	if cfg.Store == audit.StoreMemory {
		return audit.NewMemoryStore(cfg.MemoryMaxEvents)
	}
	return audit.NewKVStore(kv)
}

// rebuildModels is a rebuild task that treats a rebuild already in
// progress as success.
func rebuildModels(r *recommend.Engine) services.Task {
	return func(ctx context.Context) error {
		if err := r.Rebuild(ctx); err != nil && !errors.Is(err, recommend.ErrTrainingInProgress) {
			return err
		}
		return nil
	}
}

// supervise registers every long-running service with tree.
func (a *app) supervise(tree *supervisor.SupervisorTree, server services.HTTPServer) {
	cfg := a.cfg
	tree.AddDataService(services.NewSchedulerService(a.sched, cfg.Supervisor.ShutdownTimeout))
	tree.AddDataService(services.NewPeriodicService("model-rebuild", rebuildModels(a.recommender), cfg.Services.ModelRebuild, a.logger))

	tree.AddEngineService(services.NewPeriodicService("score-recompute", func(ctx context.Context) error {
		n := a.scorer.RefreshActive(ctx)
		a.logger.Debug().Int("sessions", n).Msg("active session scores recomputed")
		return nil
	}, cfg.Services.ScoreRecompute, a.logger))
	tree.AddEngineService(services.NewPeriodicService("catalog-refresh", a.catalog.Refresh, cfg.Services.CatalogRefresh, a.logger))

	tree.AddAPIService(a.hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
}

// httpServer builds the HTTP server for the configured address.
func (a *app) httpServer() *http.Server {
	s := a.cfg.Server
	return &http.Server{
		Addr:              s.Addr(),
		Handler:           a.router,
		ReadTimeout:       s.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

func middlewareConfig(s config.ServerConfig) api.MiddlewareConfig {
	mc := api.DefaultMiddlewareConfig()
	mc.CORSAllowedOrigins = s.CORSOrigins
	mc.RateLimitRequests = s.RateLimitRequests
	mc.RateLimitWindow = s.RateLimitWindow
	mc.RateLimitDisabled = s.RateLimitDisabled
	mc.RequestTimeout = s.RequestTimeout
	return mc
}

// operatorGuard builds the middleware protecting the operator routes.
func operatorGuard(cfg auth.Config) (func(http.Handler) http.Handler, error) {
	var manager *auth.JWTManager
	if cfg.Mode == auth.ModeJWT {
		var err error
		manager, err = auth.NewJWTManager(cfg)
		if err != nil {
			return nil, fmt.Errorf("create jwt manager: %w", err)
		}
	}
	return auth.NewMiddleware(cfg.Mode, manager, api.WriteError).RequireRole(auth.RoleOperator), nil
}
