package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pennyflow/pennyflow/internal/jobs"
	"github.com/pennyflow/pennyflow/internal/ledger"
)

// Dispatcher scans for due recurring templates and publishes one processing
// job per template. Delivery is at-least-once and unordered; the processor
// de-duplicates.
type Dispatcher struct {
	store     *ledger.Store
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *ledger.Store, publisher jobs.Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// RunCycle runs one dispatch cycle at now and returns the number of jobs
// published. It is idempotent: a template dispatched but not yet processed is
// simply dispatched again, and the processor's claim makes the second
// delivery a no-op.
func (d *Dispatcher) RunCycle(ctx context.Context, now time.Time) (int, error) {
	templates, err := d.store.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("recurring: listing due templates: %w", err)
	}

	published := 0
	for _, t := range templates {
		job := &jobs.ProcessRecurringJob{
			TransactionID: t.ID,
			UserID:        t.UserID,
		}
		if err := d.publisher.PublishProcessRecurring(ctx, job); err != nil {
			// Keep dispatching the rest; this template stays due and
			// the next cycle picks it up again.
			d.log.Error().
				Err(err).
				Str("transaction_id", t.ID.String()).
				Str("user_id", t.UserID.String()).
				Msg("Failed to publish recurring job")
			continue
		}
		published++
	}

	d.log.Info().
		Int("due", len(templates)).
		Int("published", published).
		Msg("Recurring dispatch cycle complete")

	return published, nil
}
