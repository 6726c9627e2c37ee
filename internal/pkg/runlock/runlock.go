// Package runlock provides the per-campaign run lease. At most one engine
// process may run a given campaign at a time; the lease is held for the
// duration of a processing pass and expires on its own if the holder dies.
package runlock

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a single-use, single-goroutine lock handle. Create a fresh Lease
// per campaign pass.
type Lease interface {
	// Acquire tries to take the lease. Returns false when another process
	// holds it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lease back if we still own it.
	Release(ctx context.Context) error
}

// Factory builds leases against the best available backend: Redis when a
// client is configured, PostgreSQL advisory locks otherwise.
type Factory struct {
	redisClient *redis.Client
	db          *sql.DB
	ttl         time.Duration
}

// NewFactory creates a lease factory. redisClient may be nil.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) *Factory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Factory{redisClient: redisClient, db: db, ttl: ttl}
}

// ForCampaign returns a lease keyed to one campaign.
func (f *Factory) ForCampaign(campaignID uuid.UUID) Lease {
	key := "campaign_run:" + campaignID.String()
	if f.redisClient != nil {
		return newRedisLease(f.redisClient, key, f.ttl)
	}
	return newAdvisoryLease(f.db, key)
}

// redisLease implements Lease via SET NX with TTL. A random ownership value
// and a Lua-scripted release prevent freeing a lease another process took
// after ours expired.
type redisLease struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

func newRedisLease(client *redis.Client, key string, ttl time.Duration) *redisLease {
	b := make([]byte, 16)
	rand.Read(b)
	return &redisLease{
		client: client,
		key:    "lock:" + key,
		value:  hex.EncodeToString(b),
		ttl:    ttl,
	}
}

func (l *redisLease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func (l *redisLease) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	return err
}

// advisoryLease implements Lease with pg_try_advisory_lock. Advisory locks
// are session-scoped, so the lease frees itself if the DB connection drops.
type advisoryLease struct {
	db     *sql.DB
	lockID int64
}

func newAdvisoryLease(db *sql.DB, key string) *advisoryLease {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &advisoryLease{db: db, lockID: int64(h.Sum64())}
}

func (l *advisoryLease) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

func (l *advisoryLease) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
