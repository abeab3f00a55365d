package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tradescope/internal/config"
	"tradescope/internal/session"
	webhttp "tradescope/internal/transport/http/web"
)

// App runs the HTTP shell and the session janitor.
type App struct {
	cfg      *config.Config
	sessions *session.Store
	http     *webhttp.Server
	Summary  *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(ctx, cfg)
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return a.sessions.Run(ctx)
	})
	return group.Wait()
}

// Sessions exposes the session store.
func (a *App) Sessions() *session.Store {
	if a == nil {
		return nil
	}
	return a.sessions
}
