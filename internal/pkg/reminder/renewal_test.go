package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duedesk/DueDesk/app/models"
)

type fakeRenewalStore struct {
	overdue []models.Deadline
	created []*models.Deadline
}

func (f *fakeRenewalStore) ListOverdueAutoRenew(today time.Time) ([]models.Deadline, error) {
	return f.overdue, nil
}

func (f *fakeRenewalStore) HasSuccessor(parentID uint) (bool, error) {
	for _, d := range f.created {
		if d.PredecessorID != nil && *d.PredecessorID == parentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRenewalStore) Create(d *models.Deadline) error {
	f.created = append(f.created, d)
	return nil
}

func TestRenewer_SpawnsSuccessorOnce(t *testing.T) {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	store := &fakeRenewalStore{overdue: []models.Deadline{
		{
			ID:         4,
			UserID:     7,
			Title:      "Monthly payroll report",
			DueDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			Recurrence: "monthly",
			AutoRenew:  true,
		},
	}}
	r := NewRenewer(store)
	r.now = func() time.Time { return now }

	created, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, store.created, 1)

	successor := store.created[0]
	require.NotNil(t, successor.PredecessorID)
	assert.Equal(t, uint(4), *successor.PredecessorID)
	// Jan 31 plus one month clamps to the end of February.
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), successor.DueDate)
	assert.Nil(t, successor.LastReminderSent)

	// The same overdue parent on the next sweep does not spawn a duplicate.
	created, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, store.created, 1)
}

func TestRenewer_SkipsNonRecurring(t *testing.T) {
	store := &fakeRenewalStore{overdue: []models.Deadline{
		{ID: 1, Recurrence: "none", AutoRenew: true, DueDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	r := NewRenewer(store)

	created, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, store.created)
}
