package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/model"
	"github.com/pennyflow/pennyflow/internal/notify"
)

// Document is the finished report for one user and one month, as handed to
// the archive and analytics sinks.
type Document struct {
	UserID           string    `json:"user_id"`
	Month            string    `json:"month"` // YYYY-MM
	TotalIncome      string    `json:"total_income"`
	TotalExpenses    string    `json:"total_expenses"`
	NetIncome        string    `json:"net_income"`
	TransactionCount int       `json:"transaction_count"`
	Insights         []string  `json:"insights"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Archiver persists finished report documents (GCS in production).
type Archiver interface {
	ArchiveReport(ctx context.Context, doc Document) error
}

// Exporter streams finished report rows to an analytics sink (BigQuery in
// production).
type Exporter interface {
	ExportReport(ctx context.Context, doc Document) error
}

// Generator builds and dispatches the previous month's report for every
// user.
type Generator struct {
	store    *ledger.Store
	mailer   notify.Mailer
	insights TextGenerator
	archiver Archiver // optional
	exporter Exporter // optional
	log      zerolog.Logger
}

// NewGenerator creates a Generator. archiver and exporter may be nil.
func NewGenerator(store *ledger.Store, mailer notify.Mailer, insights TextGenerator, archiver Archiver, exporter Exporter, log zerolog.Logger) *Generator {
	return &Generator{
		store:    store,
		mailer:   mailer,
		insights: insights,
		archiver: archiver,
		exporter: exporter,
		log:      log,
	}
}

// RunCycle generates one report per user for the calendar month before now
// and returns how many were dispatched. Every user gets a report, even with
// zero transactions. Per-user failures are logged and skipped so one bad
// user never blocks the rest.
func (g *Generator) RunCycle(ctx context.Context, now time.Time) (int, error) {
	users, err := g.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("report: listing users: %w", err)
	}

	// Anchor to the first of the month before subtracting: AddDate on a
	// late day (March 29-31) would normalize back into the same month.
	lastMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	processed := 0
	for _, user := range users {
		if err := g.generateFor(ctx, user, lastMonth); err != nil {
			g.log.Error().
				Err(err).
				Str("user_id", user.ID.String()).
				Msg("Monthly report failed")
			continue
		}
		processed++
	}

	g.log.Info().
		Int("users", len(users)).
		Int("processed", processed).
		Msg("Monthly report cycle complete")

	return processed, nil
}

func (g *Generator) generateFor(ctx context.Context, user model.User, month time.Time) error {
	stats, err := ComputeMonthlyStats(ctx, g.store, user.ID, month)
	if err != nil {
		return err
	}

	monthName := month.Format("January")
	insights := GenerateInsights(ctx, g.insights, stats, monthName)

	byCategory := make(map[string]string, len(stats.ByCategory))
	for cat, amt := range stats.ByCategory {
		byCategory[cat] = amt.StringFixed(2)
	}

	err = g.mailer.Send(ctx, notify.Message{
		To:       user.Email,
		Subject:  fmt.Sprintf("Monthly financial report for %s", monthName),
		Template: notify.TemplateMonthlyReport,
		Data: notify.MonthlyReportData{
			UserName:      user.Name,
			Month:         monthName,
			TotalIncome:   stats.TotalIncome.StringFixed(2),
			TotalExpenses: stats.TotalExpenses.StringFixed(2),
			NetIncome:     stats.NetIncome().StringFixed(2),
			ByCategory:    byCategory,
			Insights:      insights,
		},
	})
	if err != nil {
		return fmt.Errorf("report: sending email: %w", err)
	}

	doc := Document{
		UserID:           user.ID.String(),
		Month:            month.Format("2006-01"),
		TotalIncome:      stats.TotalIncome.StringFixed(2),
		TotalExpenses:    stats.TotalExpenses.StringFixed(2),
		NetIncome:        stats.NetIncome().StringFixed(2),
		TransactionCount: stats.TransactionCount,
		Insights:         insights,
		GeneratedAt:      time.Now(),
	}

	// Archive and export are best-effort: the report already went out.
	if g.archiver != nil {
		if err := g.archiver.ArchiveReport(ctx, doc); err != nil {
			g.log.Error().Err(err).Str("user_id", doc.UserID).Msg("Report archive failed")
		}
	}
	if g.exporter != nil {
		if err := g.exporter.ExportReport(ctx, doc); err != nil {
			g.log.Error().Err(err).Str("user_id", doc.UserID).Msg("Report export failed")
		}
	}

	return nil
}
