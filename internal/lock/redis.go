package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
)

const (
	// redisKeyPrefix namespaces lock keys in a shared Redis.
	redisKeyPrefix = "releaser:lock:"
	// redisIOTimeout bounds every Redis connect and round trip.
	redisIOTimeout = 5 * time.Second
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease cannot release a lock another run has since taken.
var releaseScript = redis.NewScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the expiry only while the key still holds our token.
var refreshScript = redis.NewScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX on a Redis server, for
// runners that do not share a file system. A held lease is renewed every
// third of the TTL until it is released, so the TTL only bounds how long a
// crashed run keeps the lock.
type RedisLocker struct {
	pool *redis.Pool
	ttl  time.Duration
}

// NewRedisLocker creates a RedisLocker for the server at url
// (redis://[user:password@]host:port[/db]). A non-positive ttl uses
// DefaultLockTTL. Connections are opened lazily.
func NewRedisLocker(url string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = constants.DefaultLockTTL
	}
	return &RedisLocker{
		ttl: ttl,
		pool: &redis.Pool{
			MaxIdle:     1,
			IdleTimeout: time.Minute,
			Dial: func() (redis.Conn, error) {
				return redis.DialURL(url,
					redis.DialConnectTimeout(redisIOTimeout),
					redis.DialReadTimeout(redisIOTimeout),
					redis.DialWriteTimeout(redisIOTimeout),
				)
			},
		},
	}
}

// Key returns the Redis key used for a package.
func (l *RedisLocker) Key(key string) string {
	return redisKeyPrefix + key
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	defer func() { _ = conn.Close() }()

	token := uuid.NewString()
	_, err = redis.String(conn.Do("SET", l.Key(key), token, "NX", "PX", l.ttl.Milliseconds()))
	if errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("package %s: %w", key, relerrors.ErrRunLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire redis lock for %s: %w", key, err)
	}

	lease := &redisLease{
		locker: l,
		key:    key,
		token:  token,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go lease.keepAlive(max(l.ttl/3, time.Millisecond))
	return lease, nil
}

// Close implements Locker.
func (l *RedisLocker) Close() error {
	return l.pool.Close()
}

type redisLease struct {
	locker *RedisLocker
	key    string
	token  string
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	err    error
}

func (l *redisLease) Key() string {
	return l.key
}

// keepAlive renews the key until Release or until the key is no longer
// ours. Connection errors are retried on the next tick.
func (l *redisLease) keepAlive(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if lost := l.refresh(); lost {
				return
			}
		}
	}
}

// refresh extends the lease and reports whether it has been lost.
func (l *redisLease) refresh() bool {
	conn := l.locker.pool.Get()
	defer func() { _ = conn.Close() }()
	n, err := redis.Int(refreshScript.Do(conn, l.locker.Key(l.key), l.token, l.locker.ttl.Milliseconds()))
	return err == nil && n == 0
}

func (l *redisLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.stop)
		<-l.done

		conn, err := l.locker.pool.GetContext(ctx)
		if err != nil {
			l.err = fmt.Errorf("connect to redis: %w", err)
			return
		}
		defer func() { _ = conn.Close() }()

		if _, err := releaseScript.Do(conn, l.locker.Key(l.key), l.token); err != nil {
			l.err = fmt.Errorf("release redis lock for %s: %w", l.key, err)
		}
	})
	return l.err
}

var _ Locker = (*RedisLocker)(nil)
