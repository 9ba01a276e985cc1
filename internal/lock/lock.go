package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another ingestion run already holds the
// dataset lock.
var ErrHeld = fmt.Errorf("ingestion run already in progress")

// RunLock serializes ingestion runs per dataset. Two concurrent runs
// against the same dataset would stamp segments with competing batch
// ids and sweep each other's content, so only one writer may proceed.
type RunLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRunLock(rdb *redis.Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunLock{rdb: rdb, ttl: ttl}
}

func key(datasetName string) string {
	return "ingest:lock:" + datasetName
}

// Acquire takes the run lock for a dataset. It returns a release
// function on success and ErrHeld when the lock belongs to another
// run. The lock expires after the TTL so a crashed run cannot block
// ingestion forever.
func (l *RunLock) Acquire(ctx context.Context, datasetName string) (func(context.Context) error, error) {
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key(datasetName), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock for %s: %w", datasetName, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	release := func(ctx context.Context) error {
		// Only the holder may release; a stale release after TTL
		// expiry must not clobber the next run's lock.
		const script = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`
		return l.rdb.Eval(ctx, script, []string{key(datasetName)}, token).Err()
	}
	return release, nil
}
