package quota

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/duedesk/DueDesk/internal/pkg/deadline"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
)

const (
	// CreateRateLimit caps deadline creations per user in a rolling day.
	CreateRateLimit = 100
	// CreateRateWindow is the rolling window for the creation rate limit.
	CreateRateWindow = 24 * time.Hour
)

var (
	// ErrQuotaExceeded means the user's plan ceiling is reached (HTTP 402).
	ErrQuotaExceeded = errors.New("deadline quota exceeded for current plan")
	// ErrRateLimited means too many creations in the rolling window (HTTP 429).
	ErrRateLimited = errors.New("deadline creation rate limit exceeded")
	// ErrRecurringNotAllowed means the plan has no recurring entitlement.
	ErrRecurringNotAllowed = errors.New("recurring deadlines are not available on current plan")
	// ErrTeamLimitReached means the tenant is at its member ceiling.
	ErrTeamLimitReached = errors.New("team member limit reached for current plan")
)

// Counter is the slice of Redis used by the rate limiter.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// DeadlineCounts is the slice of the deadline repository the guard reads.
type DeadlineCounts interface {
	CountActiveByUser(userID uint) (int64, error)
	CountCreatedSince(userID uint, since time.Time) (int64, error)
}

// Guard enforces plan ceilings and the creation rate limit. The Redis counter
// is the fast path; when it is unavailable the guard falls back to counting
// rows and, failing that too, lets the request through.
type Guard struct {
	deadlines DeadlineCounts
	counter   Counter
	now       func() time.Time
}

// NewGuard creates a quota guard. counter may be nil, in which case only the
// database fallback is used for rate limiting.
func NewGuard(deadlines DeadlineCounts, counter Counter) *Guard {
	return &Guard{
		deadlines: deadlines,
		counter:   counter,
		now:       time.Now,
	}
}

func rateKey(userID uint) string {
	return fmt.Sprintf("quota:create:%d", userID)
}

// CheckCreate validates that the user may create one more deadline: first the
// plan's active-deadline ceiling, then the rolling creation rate limit.
func (g *Guard) CheckCreate(ctx context.Context, userID uint, plan entitlements.Plan) error {
	limits := entitlements.LimitsFor(plan)

	if limits.Deadlines != entitlements.Unlimited {
		active, err := g.deadlines.CountActiveByUser(userID)
		if err != nil {
			return fmt.Errorf("counting active deadlines: %w", err)
		}
		if active >= int64(limits.Deadlines) {
			return ErrQuotaExceeded
		}
	}

	created, err := g.recentCreations(ctx, userID)
	if err != nil {
		// Fail open: a broken counter must not block paying users.
		log.Printf("[Quota] rate counter unavailable for user %d: %v", userID, err)
		return nil
	}
	if created > CreateRateLimit {
		return ErrRateLimited
	}
	return nil
}

// recentCreations increments and returns the user's creation count for the
// rolling window, preferring Redis and falling back to the database.
func (g *Guard) recentCreations(ctx context.Context, userID uint) (int64, error) {
	if g.counter != nil {
		key := rateKey(userID)
		n, err := g.counter.Incr(ctx, key)
		if err == nil {
			if n == 1 {
				if err := g.counter.Expire(ctx, key, CreateRateWindow); err != nil {
					log.Printf("[Quota] failed to set TTL on %s: %v", key, err)
				}
			}
			return n, nil
		}
		log.Printf("[Quota] redis counter failed, falling back to database: %v", err)
	}

	since := g.now().Add(-CreateRateWindow)
	created, err := g.deadlines.CountCreatedSince(userID, since)
	if err != nil {
		return 0, err
	}
	// The row count does not include the creation being attempted.
	return created + 1, nil
}

// CheckRecurring validates that the plan includes recurring deadlines.
func (g *Guard) CheckRecurring(plan entitlements.Plan, recurrence string) error {
	if recurrence == "" || deadline.RecurrencePattern(recurrence) == deadline.RecurrenceNone {
		return nil
	}
	if !entitlements.LimitsFor(plan).Recurring {
		return ErrRecurringNotAllowed
	}
	return nil
}

// CheckTeamSize validates that the owner's plan allows one more tenant member.
func (g *Guard) CheckTeamSize(plan entitlements.Plan, currentMembers int64) error {
	limits := entitlements.LimitsFor(plan)
	if limits.TeamMembers == entitlements.Unlimited {
		return nil
	}
	if currentMembers >= int64(limits.TeamMembers) {
		return ErrTeamLimitReached
	}
	return nil
}
