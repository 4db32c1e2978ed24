package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
)

type fakeCounts struct {
	active     int64
	activeErr  error
	created    int64
	createdErr error
}

func (f *fakeCounts) CountActiveByUser(userID uint) (int64, error) {
	return f.active, f.activeErr
}

func (f *fakeCounts) CountCreatedSince(userID uint, since time.Time) (int64, error) {
	return f.created, f.createdErr
}

type fakeCounter struct {
	n       int64
	err     error
	expires map[string]time.Duration
}

func (f *fakeCounter) Incr(ctx context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.n++
	return f.n, nil
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if f.expires == nil {
		f.expires = make(map[string]time.Duration)
	}
	f.expires[key] = ttl
	return nil
}

func TestCheckCreate_FreePlanCeiling(t *testing.T) {
	counts := &fakeCounts{active: 5}
	guard := NewGuard(counts, &fakeCounter{})

	err := guard.CheckCreate(context.Background(), 1, entitlements.PlanFree)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	counts.active = 4
	assert.NoError(t, guard.CheckCreate(context.Background(), 1, entitlements.PlanFree))
}

func TestCheckCreate_UnlimitedPlanSkipsCeiling(t *testing.T) {
	counts := &fakeCounts{active: 100000}
	guard := NewGuard(counts, &fakeCounter{})

	assert.NoError(t, guard.CheckCreate(context.Background(), 1, entitlements.PlanPro))
}

func TestCheckCreate_RateLimit(t *testing.T) {
	counter := &fakeCounter{n: CreateRateLimit}
	guard := NewGuard(&fakeCounts{}, counter)

	err := guard.CheckCreate(context.Background(), 1, entitlements.PlanPro)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestCheckCreate_SetsTTLOnFirstIncrement(t *testing.T) {
	counter := &fakeCounter{}
	guard := NewGuard(&fakeCounts{}, counter)

	assert.NoError(t, guard.CheckCreate(context.Background(), 7, entitlements.PlanPro))
	assert.Equal(t, CreateRateWindow, counter.expires[rateKey(7)])
}

func TestCheckCreate_RedisDownFallsBackToDatabase(t *testing.T) {
	counts := &fakeCounts{created: CreateRateLimit}
	counter := &fakeCounter{err: errors.New("connection refused")}
	guard := NewGuard(counts, counter)

	err := guard.CheckCreate(context.Background(), 1, entitlements.PlanPro)
	assert.ErrorIs(t, err, ErrRateLimited)

	counts.created = 10
	assert.NoError(t, guard.CheckCreate(context.Background(), 1, entitlements.PlanPro))
}

func TestCheckCreate_FailsOpenWhenCountersUnavailable(t *testing.T) {
	counts := &fakeCounts{createdErr: errors.New("db gone")}
	counter := &fakeCounter{err: errors.New("connection refused")}
	guard := NewGuard(counts, counter)

	assert.NoError(t, guard.CheckCreate(context.Background(), 1, entitlements.PlanPro))
}

func TestCheckRecurring(t *testing.T) {
	guard := NewGuard(&fakeCounts{}, nil)

	assert.NoError(t, guard.CheckRecurring(entitlements.PlanFree, "none"))
	assert.NoError(t, guard.CheckRecurring(entitlements.PlanFree, ""))
	assert.ErrorIs(t, guard.CheckRecurring(entitlements.PlanFree, "monthly"), ErrRecurringNotAllowed)
	assert.NoError(t, guard.CheckRecurring(entitlements.PlanPro, "monthly"))
}

func TestCheckTeamSize(t *testing.T) {
	guard := NewGuard(&fakeCounts{}, nil)

	assert.ErrorIs(t, guard.CheckTeamSize(entitlements.PlanFree, 1), ErrTeamLimitReached)
	assert.NoError(t, guard.CheckTeamSize(entitlements.PlanTeam, 9))
	assert.ErrorIs(t, guard.CheckTeamSize(entitlements.PlanTeam, 10), ErrTeamLimitReached)
	assert.NoError(t, guard.CheckTeamSize(entitlements.PlanEnterprise, 5000))
}
