package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/duedesk/DueDesk/app/models"
)

// AuditSource lists confirmed reminder sends for a time window.
type AuditSource interface {
	ListSentBetween(from, to time.Time) ([]models.ReminderLog, error)
}

// Uploader is the slice of the S3 client the exporter needs.
type Uploader interface {
	UploadJSON(ctx context.Context, objectKey string, data []byte) error
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// snapshot is the JSON document written per archived day.
type snapshot struct {
	GeneratedAt time.Time            `json:"generated_at"`
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Count       int                  `json:"count"`
	Reminders   []models.ReminderLog `json:"reminders"`
}

// Exporter writes one JSON document per day of reminder sends to the archive
// bucket. Re-running for an already archived day is a no-op, so the sweep is
// safe to repeat after restarts.
type Exporter struct {
	source   AuditSource
	uploader Uploader
	config   *Config
	now      func() time.Time
}

// NewExporter wires an exporter from its dependencies.
func NewExporter(source AuditSource, uploader Uploader, cfg *Config) *Exporter {
	return &Exporter{
		source:   source,
		uploader: uploader,
		config:   cfg,
		now:      time.Now,
	}
}

// Run archives the previous UTC day. It returns the object key that was
// written, or an empty string when the day was already archived.
func (e *Exporter) Run(ctx context.Context) (string, error) {
	now := e.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	key := e.config.GetObjectKey(dayStart)
	exists, err := e.uploader.ObjectExists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}

	logs, err := e.source.ListSentBetween(dayStart, dayEnd)
	if err != nil {
		return "", err
	}

	doc := snapshot{
		GeneratedAt: now,
		From:        dayStart,
		To:          dayEnd,
		Count:       len(logs),
		Reminders:   logs,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	if err := e.uploader.UploadJSON(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}
