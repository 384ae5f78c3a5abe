package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/run"
	"go.uber.org/zap"
)

// App runs named services as one actor group: the first one to return
// interrupts the rest, and every exit is logged with what ended it.
type App struct {
	log      *zap.Logger
	services []namedService
}

type namedService struct {
	name string
	svc  Service
}

func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{log: log}
}

// WithService adds s to the group under name.
func (a *App) WithService(name string, s Service) *App {
	a.services = append(a.services, namedService{name: name, svc: s})
	return a
}

// Run blocks until every service has returned and reports the first error,
// prefixed with the name of the service that returned it.
func (a *App) Run(ctx context.Context) error {
	var g run.Group
	for _, s := range a.services {
		g.Add(a.actor(ctx, s))
	}
	return g.Run()
}

func (a *App) actor(ctx context.Context, s namedService) (func() error, func(err error)) {
	ctx, cancel := context.WithCancelCause(ctx)
	log := a.log.With(zap.String("service", s.name))

	return func() error {
			log.Debug("service started")
			err := s.svc.Run(ctx)
			switch {
			case ctx.Err() != nil:
				log.Info("service stopped", zap.NamedError("cause", context.Cause(ctx)), zap.Error(err))
			case err == nil, errors.Is(err, ErrSignal):
				log.Info("service returned", zap.Error(err))
			default:
				log.Error("service failed", zap.Error(err))
			}
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			return nil
		}, func(err error) {
			cancel(err)
		}
}
