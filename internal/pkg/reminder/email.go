package reminder

import (
	"fmt"

	"github.com/duedesk/DueDesk/app/models"
)

// RenderReminderEmail builds the subject and HTML body for a reminder at the
// given days-before-due window.
func RenderReminderEmail(item *models.Deadline, days int) (subject, body string) {
	due := item.DueDate.Format("January 2, 2006")

	switch {
	case days <= 1:
		subject = fmt.Sprintf("Due tomorrow: %s", item.Title)
	case days <= 7:
		subject = fmt.Sprintf("Due in %d days: %s", days, item.Title)
	default:
		subject = fmt.Sprintf("Upcoming deadline: %s (%s)", item.Title, due)
	}

	body = fmt.Sprintf(`<h2>Compliance deadline reminder</h2>
<p><strong>%s</strong> is due on <strong>%s</strong> (%d day(s) from now).</p>
<table>
<tr><td>Category</td><td>%s</td></tr>
<tr><td>Severity</td><td>%s</td></tr>
<tr><td>Authority</td><td>%s</td></tr>
<tr><td>Reference</td><td>%s</td></tr>
</table>
<p>%s</p>
<p>You are receiving this because email reminders are enabled in your DueDesk settings.</p>`,
		item.Title, due, days, item.Category, item.Severity,
		orDash(item.Authority), orDash(item.ReferenceNumber), item.Description)
	return subject, body
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
