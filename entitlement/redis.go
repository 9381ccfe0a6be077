package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/c360/actiongate/entity"
)

// rateScript bumps the minute counter and starts the window on first use
var rateScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// slotScript reserves an in-flight slot unless the ceiling is reached. The
// key carries a safety TTL refreshed on every touch so slots leaked by a
// crashed replica drain on their own.
var slotScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
if current > tonumber(ARGV[1]) then
  redis.call("DECR", KEYS[1])
  return {current - 1, 0}
end
return {current, 1}
`)

// releaseScript drops an in-flight slot, clamping at zero in case the
// safety TTL already reset the key
var releaseScript = redis.NewScript(`
local current = redis.call("DECR", KEYS[1])
if current < 0 then
  redis.call("SET", KEYS[1], 0, "KEEPTTL")
end
return current
`)

const (
	rateKeyPrefix = "throttle:rate:"
	slotKeyPrefix = "throttle:conc:"

	rateWindow    = time.Minute
	slotSafetyTTL = 10 * time.Minute
	redisTimeout  = 2 * time.Second
)

// Logger matches the process logger surface the provider needs
type Logger interface {
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// RedisProvider enforces throttles with Redis counters shared across gateway
// replicas, degrading to process-local counters when Redis misbehaves
type RedisProvider struct {
	client redis.UniversalClient
	limits Limits
	logger Logger

	fallbackRates *localRates
	fallbackSlots *localSlots
}

// NewRedisProvider creates a Redis-backed throttle provider
func NewRedisProvider(client redis.UniversalClient, limits Limits, logger Logger) *RedisProvider {
	return &RedisProvider{
		client:        client,
		limits:        limits,
		logger:        logger,
		fallbackRates: newLocalRates(),
		fallbackSlots: newLocalSlots(),
	}
}

func (p *RedisProvider) CheckRate(ctx context.Context, id *entity.Identity) error {
	perMinute, _ := p.limits.forIdentity(id)

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := rateScript.Run(ctx, p.client, []string{rateKeyPrefix + id.Namespace},
		rateWindow.Milliseconds()).Int64()
	if err != nil {
		p.logger.Errorf("throttle rate check degraded to local counters: %v", err)
		if !p.fallbackRates.allow(id.Namespace, perMinute) {
			return rateRejection(perMinute+1, perMinute)
		}
		return nil
	}

	if res > int64(perMinute) {
		return rateRejection(int(res), perMinute)
	}
	return nil
}

func (p *RedisProvider) AcquireSlot(ctx context.Context, id *entity.Identity) (func(), error) {
	_, concurrent := p.limits.forIdentity(id)
	key := slotKeyPrefix + id.Namespace

	runCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := slotScript.Run(runCtx, p.client, []string{key},
		concurrent, slotSafetyTTL.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		if err != nil {
			p.logger.Errorf("throttle slot acquire degraded to local counters: %v", err)
		}
		count, ok := p.fallbackSlots.acquire(id.Namespace, concurrent)
		if !ok {
			return nil, concurrencyRejection(count, concurrent)
		}
		ns := id.Namespace
		var once sync.Once
		return func() { once.Do(func() { p.fallbackSlots.release(ns) }) }, nil
	}

	if res[1] != 1 {
		return nil, concurrencyRejection(int(res[0]), concurrent)
	}

	var once sync.Once
	return func() { once.Do(func() { p.releaseSlot(key) }) }, nil
}

// releaseSlot runs on a fresh context: the request context is usually
// finished by the time the invocation completes
func (p *RedisProvider) releaseSlot(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, p.client, []string{key}).Err(); err != nil {
		p.logger.Errorf("throttle slot release failed for %s: %v", key, err)
	}
}
