// Package server assembles the store, services and HTTP router from configuration.
package server

import (
	"context"
	"fmt"

	"github.com/kartikbazzad/bunbase/marketplace/internal/aggregate"
	"github.com/kartikbazzad/bunbase/marketplace/internal/auth"
	"github.com/kartikbazzad/bunbase/marketplace/internal/authz"
	"github.com/kartikbazzad/bunbase/marketplace/internal/config"
	"github.com/kartikbazzad/bunbase/marketplace/internal/services"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/memory"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/mongo"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/postgres"
	"github.com/kartikbazzad/bunbase/marketplace/internal/validate"
)

// App holds the wired services. Close releases the store and the worker pool.
type App struct {
	Store     store.Store
	Auth      *auth.Auth
	Requests  *services.RequestService
	Proposals *services.ProposalService
	Projects  *services.ProjectService
	Enforcer  *authz.Enforcer
	enricher  *aggregate.Enricher
}

// OpenStore opens the configured store driver.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		s, err := mongo.Open(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		if err := postgres.Migrate(cfg.Postgres); err != nil {
			return nil, err
		}
		s, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// New wires services around an open store.
func New(s store.Store, cfg *config.AppConfig) (*App, error) {
	issuer, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	validator, err := validate.New()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schemas: %w", err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("failed to load route policy: %w", err)
	}
	enricher, err := aggregate.NewFromStore(s, aggregate.Options{
		Workers:   cfg.Aggregate.Workers,
		CacheSize: cfg.Aggregate.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment pool: %w", err)
	}

	return &App{
		Store:     s,
		Auth:      auth.NewAuth(s, issuer, validator),
		Requests:  services.NewRequestService(s, enricher, validator),
		Proposals: services.NewProposalService(s, enricher, validator),
		Projects:  services.NewProjectService(s, enricher),
		Enforcer:  enforcer,
		enricher:  enricher,
	}, nil
}

// Close releases the worker pool and the store.
func (a *App) Close(ctx context.Context) error {
	a.enricher.Release()
	return a.Store.Close(ctx)
}
