package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/duedesk/DueDesk/app/models"
)

func TestRenderReminderEmailSubjects(t *testing.T) {
	item := &models.Deadline{
		Title:   "Liability insurance renewal",
		DueDate: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}

	subject, _ := RenderReminderEmail(item, 1)
	assert.Equal(t, "Due tomorrow: Liability insurance renewal", subject)

	subject, _ = RenderReminderEmail(item, 7)
	assert.Equal(t, "Due in 7 days: Liability insurance renewal", subject)

	subject, _ = RenderReminderEmail(item, 30)
	assert.Equal(t, "Upcoming deadline: Liability insurance renewal (September 30, 2026)", subject)
}

func TestRenderReminderEmailBody(t *testing.T) {
	item := &models.Deadline{
		Title:     "Trade license",
		Category:  "license",
		Severity:  "high",
		Authority: "City of Springfield",
		DueDate:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}

	_, body := RenderReminderEmail(item, 14)
	assert.Contains(t, body, "Trade license")
	assert.Contains(t, body, "September 30, 2026")
	assert.Contains(t, body, "City of Springfield")
	// empty reference number renders as a dash
	assert.Contains(t, body, "<tr><td>Reference</td><td>-</td></tr>")
}
