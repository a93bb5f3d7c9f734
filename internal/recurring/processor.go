package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pennyflow/pennyflow/internal/jobs"
	"github.com/pennyflow/pennyflow/internal/ledger"
)

// Processor consumes recurring-transaction jobs and materializes occurrences.
type Processor struct {
	store *ledger.Store
	log   zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(store *ledger.Store, log zerolog.Logger) *Processor {
	return &Processor{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Handler returns the jobs.JobHandler that the queue consumer runs.
func (p *Processor) Handler() jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		recJob, ok := job.(*jobs.ProcessRecurringJob)
		if !ok {
			return fmt.Errorf("recurring: unexpected job type: %T", job)
		}
		return p.Process(ctx, recJob)
	}
}

// Process materializes one occurrence for the job's template. A missing,
// non-owned or already-claimed template is a successful no-op: with
// at-least-once delivery a duplicate job is expected, not an error worth
// retrying.
func (p *Processor) Process(ctx context.Context, job *jobs.ProcessRecurringJob) error {
	log := p.log.With().
		Str("job_id", job.JobID).
		Str("transaction_id", job.TransactionID.String()).
		Str("user_id", job.UserID.String()).
		Logger()

	occurrence, err := p.store.ProcessRecurringOccurrence(ctx, job.TransactionID, job.UserID, p.now(), NextRecurringDate)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		log.Warn().Msg("Recurring template missing or not owned, skipping")
		return nil
	case errors.Is(err, ledger.ErrNotDue):
		log.Debug().Msg("Recurring template not due, skipping")
		return nil
	case err != nil:
		log.Error().Err(err).Msg("Recurring processing failed")
		return err
	}

	log.Info().
		Str("occurrence_id", occurrence.ID.String()).
		Str("amount", occurrence.Amount.String()).
		Str("type", string(occurrence.Type)).
		Msg("Recurring occurrence created")

	return nil
}
