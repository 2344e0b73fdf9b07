package srv

import (
	"context"
	"errors"

	"github.com/sandevgo/cuuri/pkg/log"
)

// ErrShutdown is returned from Start by a service that ended on purpose and
// wants the whole process to stop, like a REPL after "exit".
var ErrShutdown = errors.New("shutdown requested")

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices starts every service in its own goroutine. A service whose
// Start returns an error cancels the shared context via stop.
func StartServices(ctx context.Context, stop context.CancelFunc, services []Service) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			err := service.Start(ctx)
			switch {
			case err == nil:
				return
			case errors.Is(err, ErrShutdown):
				logger.Info().Msgf("%T requested shutdown", service)
			case errors.Is(err, context.Canceled):
				return
			default:
				logger.Error().Err(err).Msgf("%T failed", service)
			}
			stop()
		}(service)
	}
}

// ShutdownServices waits for ctx to be done and shuts services down in
// reverse start order, so storage outlives the transports using it.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	shutdownCtx := context.WithoutCancel(ctx)
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(shutdownCtx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}
