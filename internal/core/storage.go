package core

import (
	"context"
)

type ExchangeStore interface {
	Append(ctx context.Context, ex Exchange) (Exchange, error)
	// History returns the newest limit exchanges of a session in ascending
	// order. limit <= 0 returns all of them.
	History(ctx context.Context, sessionID string, limit int) ([]Exchange, error)
}

type SessionLister interface {
	Sessions(ctx context.Context) ([]SessionSummary, error)
}
