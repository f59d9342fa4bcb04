package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with a fixed window and lockout. It lets
// several vault processes sharing one database enforce a common budget.
type PG struct {
	pool     Querier
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

var _ Limiter = (*PG)(nil)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over q, usually the vault's pool.
func NewPG(q Querier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxFails: maxFails, blockFor: blockFor}
}

// Allow implements Limiter.
func (l *PG) Allow(ctx context.Context, uid int, seedID int64) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM pin_limiter WHERE uid=$1 AND seed_id=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, uid, seedID).Scan(&blockedUntil)
	switch {
	case err == nil:
		if blockedUntil.After(time.Now()) {
			return false, time.Until(blockedUntil), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success implements Limiter.
func (l *PG) Success(ctx context.Context, uid int, seedID int64) error {
	const q = `DELETE FROM pin_limiter WHERE uid=$1 AND seed_id=$2`
	_, err := l.pool.Exec(ctx, q, uid, seedID)
	return err
}

// Failure implements Limiter.
func (l *PG) Failure(ctx context.Context, uid int, seedID int64) (bool, time.Duration, error) {
	const q = `
INSERT INTO pin_limiter (uid, seed_id, fail_count, first_fail_at, blocked_until, updated_at)
VALUES ($1,$2,1,now(),'epoch',now())
ON CONFLICT (uid, seed_id) DO UPDATE
SET
  fail_count    = CASE WHEN now() - pin_limiter.first_fail_at > $3::interval THEN 1 ELSE pin_limiter.fail_count + 1 END,
  first_fail_at = CASE WHEN now() - pin_limiter.first_fail_at > $3::interval THEN now() ELSE pin_limiter.first_fail_at END,
  updated_at    = now()
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, uid, seedID, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails >= l.maxFails {
		blockUntil := time.Now().Add(l.blockFor)
		const upd = `UPDATE pin_limiter SET blocked_until=$3, fail_count=0, first_fail_at=now() WHERE uid=$1 AND seed_id=$2`
		if _, err := l.pool.Exec(ctx, upd, uid, seedID, blockUntil); err != nil {
			return false, 0, err
		}
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
