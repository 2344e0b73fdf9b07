package srv

import "context"

// cleanupService runs a function on shutdown and does nothing on start.
type cleanupService struct {
	cleanup func(ctx context.Context) error
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	if c.cleanup != nil {
		return c.cleanup(ctx)
	}
	return nil
}

func NewCleanupCtx(fn func(ctx context.Context) error) Service {
	return &cleanupService{cleanup: fn}
}
