package entitlement

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/c360/actiongate/entity"
)

// LocalProvider enforces throttles with process-local counters only. Suitable
// for single-replica deployments and tests; multi-replica deployments want
// NewRedisProvider so the ceilings hold across the fleet.
type LocalProvider struct {
	limits Limits
	rates  *localRates
	slots  *localSlots
}

// NewLocalProvider creates a process-local throttle provider
func NewLocalProvider(limits Limits) *LocalProvider {
	return &LocalProvider{
		limits: limits,
		rates:  newLocalRates(),
		slots:  newLocalSlots(),
	}
}

func (p *LocalProvider) CheckRate(_ context.Context, id *entity.Identity) error {
	perMinute, _ := p.limits.forIdentity(id)
	if !p.rates.allow(id.Namespace, perMinute) {
		return rateRejection(perMinute+1, perMinute)
	}
	return nil
}

func (p *LocalProvider) AcquireSlot(_ context.Context, id *entity.Identity) (func(), error) {
	_, concurrent := p.limits.forIdentity(id)
	count, ok := p.slots.acquire(id.Namespace, concurrent)
	if !ok {
		return nil, concurrencyRejection(count, concurrent)
	}
	ns := id.Namespace
	var once sync.Once
	return func() { once.Do(func() { p.slots.release(ns) }) }, nil
}

// localRates tracks per-namespace token buckets sized to the namespace's
// minute ceiling. Used directly by the local provider and as the degraded
// path when Redis is unreachable.
type localRates struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLocalRates() *localRates {
	return &localRates{limiters: make(map[string]*rate.Limiter)}
}

// allow reports whether one more invocation fits under perMinute for the
// namespace. The bucket refills continuously, so a namespace that bursts to
// its full minute budget drains back at limit/60 per second instead of
// unlocking all at once on a window boundary.
func (r *localRates) allow(namespace string, perMinute int) bool {
	r.mu.Lock()
	lim, ok := r.limiters[namespace]
	if !ok || lim.Burst() != perMinute {
		lim = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		r.limiters[namespace] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}

// localSlots tracks per-namespace in-flight counts
type localSlots struct {
	mu       sync.Mutex
	inFlight map[string]int
}

func newLocalSlots() *localSlots {
	return &localSlots{inFlight: make(map[string]int)}
}

// acquire reserves a slot when under the ceiling, reporting the occupancy
// after the attempt either way
func (s *localSlots) acquire(namespace string, ceiling int) (count int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.inFlight[namespace]
	if cur >= ceiling {
		return cur, false
	}
	s.inFlight[namespace] = cur + 1
	return cur + 1, true
}

func (s *localSlots) release(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.inFlight[namespace]; cur > 1 {
		s.inFlight[namespace] = cur - 1
	} else {
		delete(s.inFlight, namespace)
	}
}
