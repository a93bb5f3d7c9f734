// Package analytics streams finished monthly report rows to BigQuery.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/pennyflow/pennyflow/internal/report"
)

// ReportRow is the BigQuery schema for one monthly report.
type ReportRow struct {
	UserID           string    `bigquery:"user_id"`
	Month            string    `bigquery:"month"`
	TotalIncome      string    `bigquery:"total_income"`
	TotalExpenses    string    `bigquery:"total_expenses"`
	NetIncome        string    `bigquery:"net_income"`
	TransactionCount int       `bigquery:"transaction_count"`
	Insights         string    `bigquery:"insights"`
	GeneratedTS      time.Time `bigquery:"generated_ts"`
}

// BigQueryExporter streams report rows into one table with a shared client.
type BigQueryExporter struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewBigQueryExporter creates the exporter. When credentialsFile is empty,
// Application Default Credentials are used.
func NewBigQueryExporter(ctx context.Context, projectID, dataset, table, credentialsFile string) (*BigQueryExporter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("analytics: bigquery client: %w", err)
	}
	return &BigQueryExporter{client: client, dataset: dataset, table: table}, nil
}

// Close releases the BigQuery client.
func (e *BigQueryExporter) Close() error {
	return e.client.Close()
}

// ExportReport implements report.Exporter.
func (e *BigQueryExporter) ExportReport(ctx context.Context, doc report.Document) error {
	row := &ReportRow{
		UserID:           doc.UserID,
		Month:            doc.Month,
		TotalIncome:      doc.TotalIncome,
		TotalExpenses:    doc.TotalExpenses,
		NetIncome:        doc.NetIncome,
		TransactionCount: doc.TransactionCount,
		Insights:         strings.Join(doc.Insights, "\n"),
		GeneratedTS:      doc.GeneratedAt,
	}

	inserter := e.client.Dataset(e.dataset).Table(e.table).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("analytics: inserting report row: %w", err)
	}
	return nil
}

var _ report.Exporter = (*BigQueryExporter)(nil)
