// Package leaselock provides a PostgreSQL-backed lease lock. A lease is a
// row in app_locks with an expiry; holders renew it in the background and
// fence writes with a per-acquisition token so a stale holder cannot
// release or renew a lock it already lost.
package leaselock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrBusy means another holder owns a live lease on the key.
	ErrBusy = errors.New("lease lock busy")
	// ErrLost means the lease could not be renewed and the holder must stop.
	ErrLost = errors.New("lease lock lost")
)

const (
	defaultTTL   = 5 * time.Minute
	renewTimeout = 15 * time.Second
)

type conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Locker struct {
	db conn
}

func New(pool *pgxpool.Pool) *Locker {
	return &Locker{db: pool}
}

// Lease is a held lock. Context is cancelled if a background renewal fails,
// so work done under the lease should run on it.
type Lease struct {
	Key     string
	Token   string
	Context context.Context

	locker *Locker
	cancel context.CancelCauseFunc
	once   sync.Once
	stop   chan struct{}
	ttlMs  int64
}

// WithLease runs fn under a lease on key, releasing it when fn returns.
// Returns ErrBusy without calling fn when the key is already held.
func (lk *Locker) WithLease(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lease, err := lk.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()
	return fn(lease.Context)
}

// Acquire takes the lease on key or returns ErrBusy. A zero ttl uses the
// default. The lease renews itself every ttl/2 until released.
func (lk *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease lock key is empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	token, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	ttlMs := ttl.Milliseconds()
	var got string
	err = lk.db.QueryRow(ctx, tryAcquireSQL, key, token, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		locker:  lk,
		cancel:  cancel,
		stop:    make(chan struct{}),
		ttlMs:   ttlMs,
	}

	go l.renewLoop(max(ttl/2, time.Second))

	return l, nil
}

// Release stops renewal and deletes the lease row. Safe to call more than
// once; the delete is fenced on the token.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.stop)
		l.cancel(context.Canceled)
	})

	_, err := l.locker.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

func (l *Lease) renewLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renew() error {
	ctx, cancel := context.WithTimeout(l.Context, renewTimeout)
	defer cancel()

	var got string
	err := l.locker.db.QueryRow(ctx, renewSQL, l.Key, l.Token, l.ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLost
	}
	return err
}

// The upsert succeeds when the key is free, expired, or already ours.
const tryAcquireSQL = `
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now()
   OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM app_locks
WHERE lock_key = $1 AND locked_by = $2;
`
