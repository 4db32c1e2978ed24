package reminder

import (
	"context"
	"log"
	"time"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/internal/pkg/deadline"
)

// RenewalStore is the slice of the deadline repository the renewer needs.
type RenewalStore interface {
	ListOverdueAutoRenew(today time.Time) ([]models.Deadline, error)
	HasSuccessor(parentID uint) (bool, error)
	Create(deadline *models.Deadline) error
}

// Renewer spawns the next occurrence for overdue auto-renew deadlines. Each
// parent gets at most one successor, so repeated sweeps over the same overdue
// row are harmless.
type Renewer struct {
	deadlines RenewalStore
	now       func() time.Time
}

// NewRenewer wires a renewer from its store.
func NewRenewer(deadlines RenewalStore) *Renewer {
	return &Renewer{deadlines: deadlines, now: time.Now}
}

// Run performs a single renewal sweep and returns the number of successors
// created.
func (r *Renewer) Run(ctx context.Context) (int, error) {
	today := deadline.Date(r.now())

	overdue, err := r.deadlines.ListOverdueAutoRenew(today)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range overdue {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		parent := &overdue[i]
		if !parent.IsRecurring() {
			continue
		}

		exists, err := r.deadlines.HasSuccessor(parent.ID)
		if err != nil {
			log.Printf("[Renewal] successor check failed for deadline %s: %v", parent.UUID, err)
			continue
		}
		if exists {
			continue
		}

		successor := parent.SpawnSuccessor()
		if err := r.deadlines.Create(successor); err != nil {
			log.Printf("[Renewal] failed to create successor for deadline %s: %v", parent.UUID, err)
			continue
		}
		created++
	}

	if created > 0 {
		log.Printf("[Renewal] sweep complete: %d successor(s) created", created)
	}
	return created, nil
}
