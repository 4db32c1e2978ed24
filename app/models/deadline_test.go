package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duedesk/DueDesk/internal/pkg/deadline"
)

func TestDeadlineValidate(t *testing.T) {
	d := &Deadline{
		UserID:   1,
		Title:    "Liability insurance renewal",
		Category: CategoryInsurance,
		DueDate:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Severity: SeverityHigh,
	}
	d.Recurrence = string(deadline.RecurrenceAnnual)
	require.NoError(t, d.Validate())

	d.Title = ""
	assert.Error(t, d.Validate())

	d.Title = "ok"
	d.Category = "banana"
	assert.Error(t, d.Validate())
}

func TestDeadlineUrgencyDerivation(t *testing.T) {
	today := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	d := &Deadline{DueDate: time.Date(2026, 4, 13, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, 3, d.DaysUntilDue(today))
	assert.Equal(t, deadline.UrgencyCritical, d.Urgency(today))
}

func TestSpawnSuccessor(t *testing.T) {
	parent := &Deadline{
		ID:         42,
		UserID:     7,
		Title:      "Trade license",
		Category:   CategoryLicense,
		DueDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Severity:   SeverityCritical,
		Recurrence: string(deadline.RecurrenceMonthly),
		AutoRenew:  true,
		Authority:  "City of Springfield",
	}
	now := time.Now()
	parent.LastReminderSent = &now

	child := parent.SpawnSuccessor()

	require.NotNil(t, child.PredecessorID)
	assert.Equal(t, parent.ID, *child.PredecessorID)
	assert.Equal(t, parent.Title, child.Title)
	assert.Equal(t, parent.Authority, child.Authority)
	assert.True(t, child.AutoRenew)
	assert.Nil(t, child.LastReminderSent)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), child.DueDate)
}

func TestUserSettingsAPIKeyLifecycle(t *testing.T) {
	us := &UserSettings{UserID: 1}

	key, err := us.IssueAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.True(t, us.HasActiveAPIKey())
	assert.Equal(t, HashAPIKey(key), us.APIKeyHash)

	us.RevokeAPIKey()
	assert.False(t, us.HasActiveAPIKey())
	assert.NotNil(t, us.APIKeyRevokedAt)
}

func TestTenantInvite(t *testing.T) {
	inv, err := NewTenantInvite(3, 1, "colleague@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, inv.Token)
	assert.False(t, inv.IsExpired())
	assert.False(t, inv.IsAccepted())

	inv.ExpiresAt = time.Now().Add(-time.Hour)
	assert.True(t, inv.IsExpired())
}
