package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duedesk/DueDesk/app/models"
)

type fakeDeadlineStore struct {
	items  []models.Deadline
	marked map[uint]time.Time
}

func (f *fakeDeadlineStore) ListDueOnOrAfter(date time.Time) ([]models.Deadline, error) {
	var out []models.Deadline
	for _, d := range f.items {
		if !d.DueDate.Before(date) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeadlineStore) MarkReminderSent(id uint, at time.Time) error {
	if f.marked == nil {
		f.marked = make(map[uint]time.Time)
	}
	f.marked[id] = at
	for i := range f.items {
		if f.items[i].ID == id {
			t := at
			f.items[i].LastReminderSent = &t
		}
	}
	return nil
}

type fakeUserStore struct {
	users    map[uint]*models.User
	settings map[uint]*models.UserSettings
}

func (f *fakeUserStore) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeUserStore) GetSettings(userID uint) (*models.UserSettings, error) {
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return &models.UserSettings{UserID: userID, EmailReminders: true}, nil
}

type sentMail struct {
	to      string
	subject string
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(to, subject, htmlBody string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return nil
}

type fakeSendLog struct {
	entries int
}

func (f *fakeSendLog) Log(deadlineID, userID uint, window int, email, subject string, sentAt time.Time) error {
	f.entries++
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testDispatcher(store *fakeDeadlineStore, users *fakeUserStore, mailer *fakeMailer, now time.Time) (*Dispatcher, *fakeSendLog) {
	sendLog := &fakeSendLog{}
	d := NewDispatcher(store, users, sendLog, mailer)
	d.now = fixedClock(now)
	return d, sendLog
}

func dueIn(now time.Time, days int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func TestDispatcher_SendsAtWindowThenSkipsWithin24h(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeDeadlineStore{items: []models.Deadline{
		{ID: 1, UserID: 7, Title: "VAT filing", DueDate: dueIn(now, 3)},
	}}
	users := &fakeUserStore{users: map[uint]*models.User{
		7: {ID: 7, Email: "owner@example.com"},
	}}
	mailer := &fakeMailer{}
	d, sendLog := testDispatcher(store, users, mailer, now)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1, Skipped: 0, Total: 1}, result)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@example.com", mailer.sent[0].to)
	assert.Equal(t, now, store.marked[1])
	assert.Equal(t, 1, sendLog.entries)

	// A rerun a few hours later hits the dedup gap.
	d.now = fixedClock(now.Add(5 * time.Hour))
	result, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 0, Skipped: 1, Total: 1}, result)
	assert.Len(t, mailer.sent, 1)
}

func TestDispatcher_ResendsAtNewWindowAfterGap(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Hour)
	store := &fakeDeadlineStore{items: []models.Deadline{
		{ID: 1, UserID: 7, Title: "License renewal", DueDate: dueIn(now, 1), LastReminderSent: &last},
	}}
	users := &fakeUserStore{users: map[uint]*models.User{
		7: {ID: 7, Email: "owner@example.com"},
	}}
	mailer := &fakeMailer{}
	d, _ := testDispatcher(store, users, mailer, now)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Contains(t, mailer.sent[0].subject, "Due tomorrow")
}

func TestDispatcher_SkipsOutsideWindows(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeDeadlineStore{items: []models.Deadline{
		{ID: 1, UserID: 7, DueDate: dueIn(now, 10)},
		{ID: 2, UserID: 7, DueDate: dueIn(now, 45)},
	}}
	users := &fakeUserStore{users: map[uint]*models.User{
		7: {ID: 7, Email: "owner@example.com"},
	}}
	mailer := &fakeMailer{}
	d, _ := testDispatcher(store, users, mailer, now)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 0, Skipped: 2, Total: 2}, result)
	assert.Empty(t, mailer.sent)
}

func TestDispatcher_RespectsOptOut(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeDeadlineStore{items: []models.Deadline{
		{ID: 1, UserID: 7, DueDate: dueIn(now, 7)},
	}}
	users := &fakeUserStore{
		users: map[uint]*models.User{7: {ID: 7, Email: "owner@example.com"}},
		settings: map[uint]*models.UserSettings{
			7: {UserID: 7, EmailReminders: false},
		},
	}
	mailer := &fakeMailer{}
	d, _ := testDispatcher(store, users, mailer, now)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 0, Skipped: 1, Total: 1}, result)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, store.marked)
}

func TestDispatcher_SendFailureDoesNotAdvanceMarker(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeDeadlineStore{items: []models.Deadline{
		{ID: 1, UserID: 7, DueDate: dueIn(now, 7)},
		{ID: 2, UserID: 8, DueDate: dueIn(now, 3)},
	}}
	users := &fakeUserStore{users: map[uint]*models.User{
		7: {ID: 7, Email: "a@example.com"},
		8: {ID: 8, Email: "b@example.com"},
	}}
	mailer := &fakeMailer{fail: true}
	d, sendLog := testDispatcher(store, users, mailer, now)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 0, Skipped: 2, Total: 2}, result)
	assert.Empty(t, store.marked)
	assert.Equal(t, 0, sendLog.entries)

	// Next run after the outage retries both.
	mailer.fail = false
	result, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
}

func TestDispatcher_ContinuesPastMissingOwner(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeDeadlineStore{items: []models.Deadline{
		{ID: 1, UserID: 99, DueDate: dueIn(now, 7)},
		{ID: 2, UserID: 7, DueDate: dueIn(now, 7)},
	}}
	users := &fakeUserStore{users: map[uint]*models.User{
		7: {ID: 7, Email: "owner@example.com"},
	}}
	mailer := &fakeMailer{}
	d, _ := testDispatcher(store, users, mailer, now)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1, Skipped: 1, Total: 2}, result)
}
