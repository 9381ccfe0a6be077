package entitlement

import (
	"context"
	"fmt"
	"net/http"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
)

// Provider checks activation throttles for an action-owner identity
type Provider interface {
	// CheckRate enforces the per-minute invocation ceiling for the
	// identity's namespace. Rejections carry a 429 with a diagnostic body.
	CheckRate(ctx context.Context, id *entity.Identity) error

	// AcquireSlot reserves one in-flight invocation slot for the identity's
	// namespace. The returned release must be called exactly once when the
	// invocation completes, on every path including errors.
	AcquireSlot(ctx context.Context, id *entity.Identity) (release func(), err error)
}

// Limits applied when an identity record carries none
type Limits struct {
	InvocationsPerMinute  int
	ConcurrentInvocations int
}

// DefaultLimits mirror the platform-wide defaults
func DefaultLimits() Limits {
	return Limits{
		InvocationsPerMinute:  120,
		ConcurrentInvocations: 100,
	}
}

func (l Limits) forIdentity(id *entity.Identity) (perMinute, concurrent int) {
	perMinute = l.InvocationsPerMinute
	concurrent = l.ConcurrentInvocations
	if id.Limits.InvocationsPerMinute > 0 {
		perMinute = id.Limits.InvocationsPerMinute
	}
	if id.Limits.ConcurrentInvocations > 0 {
		concurrent = id.Limits.ConcurrentInvocations
	}
	return perMinute, concurrent
}

func rateRejection(count, allowed int) error {
	return errors.RejectWith(http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests in the last minute (count: %d, allowed: %d).", count, allowed),
		errors.ErrRateLimited)
}

func concurrencyRejection(count, allowed int) error {
	return errors.RejectWith(http.StatusTooManyRequests,
		fmt.Sprintf("Too many concurrent requests in flight (count: %d, allowed: %d).", count, allowed),
		errors.ErrQuotaExceeded)
}
