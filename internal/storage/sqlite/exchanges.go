package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/pkg/log"
)

var ErrInvalidExchange = errors.New("invalid exchange")

type ExchangesRepo struct {
	db *sql.DB
}

func NewExchangesRepo(db *sql.DB) *ExchangesRepo {
	return &ExchangesRepo{db: db}
}

// Append stores one exchange with a single INSERT. created_at is clamped to
// the session's latest value so that insertion order and time order agree
// even if the wall clock steps back.
func (r *ExchangesRepo) Append(ctx context.Context, ex core.Exchange) (core.Exchange, error) {
	switch {
	case ex.SessionID == "":
		return core.Exchange{}, fmt.Errorf("%w: empty session id", ErrInvalidExchange)
	case ex.Question == "":
		return core.Exchange{}, fmt.Errorf("%w: empty question", ErrInvalidExchange)
	case ex.Answer == "":
		return core.Exchange{}, fmt.Errorf("%w: empty answer", ErrInvalidExchange)
	}

	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO exchanges (session_id, question, answer, created_at)
		VALUES (?, ?, ?, MAX(?, COALESCE((SELECT MAX(created_at) FROM exchanges WHERE session_id = ?), 0)))
		RETURNING id, created_at`

	var createdAt int64
	err := r.db.QueryRowContext(ctx, query,
		ex.SessionID, ex.Question, ex.Answer, ex.CreatedAt.UnixNano(), ex.SessionID,
	).Scan(&ex.ID, &createdAt)
	if err != nil {
		return core.Exchange{}, fmt.Errorf("failed to insert exchange: %w", err)
	}
	ex.CreatedAt = time.Unix(0, createdAt).UTC()

	log.FromCtx(ctx).Debug().
		Str("session", ex.SessionID).
		Int64("id", ex.ID).
		Msg("exchange stored")
	return ex, nil
}

// History returns the newest limit exchanges of a session, oldest first.
// An unknown session yields an empty slice.
func (r *ExchangesRepo) History(ctx context.Context, sessionID string, limit int) ([]core.Exchange, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	// Fetch the LAST 'limit' exchanges by ordering DESC
	query := `
		SELECT id, session_id, question, answer, created_at
		FROM exchanges
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := make([]core.Exchange, 0)
	for rows.Next() {
		var ex core.Exchange
		var createdAt int64
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.Question, &ex.Answer, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.CreatedAt = time.Unix(0, createdAt).UTC()
		exchanges = append(exchanges, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchanges: %w", err)
	}

	// Back to chronological order for the context builder.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}

	log.FromCtx(ctx).Debug().Str("session", sessionID).Int("count", len(exchanges)).Msg("loaded history")
	return exchanges, nil
}

// Sessions lists every session with its size and last activity, most
// recently active first.
func (r *ExchangesRepo) Sessions(ctx context.Context) ([]core.SessionSummary, error) {
	query := `
		SELECT session_id, COUNT(*), MAX(created_at) AS last_activity
		FROM exchanges
		GROUP BY session_id
		ORDER BY last_activity DESC, session_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]core.SessionSummary, 0)
	for rows.Next() {
		var s core.SessionSummary
		var last int64
		if err := rows.Scan(&s.SessionID, &s.Exchanges, &last); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.LastActivity = time.Unix(0, last).UTC()
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *ExchangesRepo) Checkpoint(ctx context.Context) error {
	return Checkpoint(ctx, r.db)
}
