package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

// Service is a long-running component; Run returns once ctx is done or the
// component fails.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a plain function to Service.
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// ErrSignal is returned by the signal service when a shutdown signal arrives.
var ErrSignal = errors.New("shutdown signal")

// Signals returns a service that ends the group when one of sigs is received.
func Signals(sigs ...os.Signal) Service {
	return ServiceFunc(func(ctx context.Context) error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sigs...)
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			return fmt.Errorf("%w: %s", ErrSignal, sig)
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
