// Package report publishes crawl run summaries as files, console output,
// and email alerts.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/logger"
)

const (
	reportDirPerm  = 0o755
	reportFilePerm = 0o644
)

// Reporter publishes run summaries to every configured destination. It
// implements the crawl orchestrator's report sink.
type Reporter struct {
	cfg    Config
	log    logger.Interface
	mailer Mailer
}

// Option customizes a Reporter.
type Option func(*Reporter)

// WithMailer overrides the SMTP mailer. Used in tests.
func WithMailer(m Mailer) Option {
	return func(r *Reporter) { r.mailer = m }
}

// NewReporter creates a reporter.
func NewReporter(cfg Config, log logger.Interface, opts ...Option) *Reporter {
	r := &Reporter{
		cfg:    cfg,
		log:    log.WithComponent("report"),
		mailer: &smtpMailer{cfg: cfg.Email},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish writes the run's report files, renders the console table, and
// sends the alert email when warranted. Destinations are independent: a
// failing one is logged and the rest still publish. The first error is
// returned after all destinations were attempted.
func (r *Reporter) Publish(ctx context.Context, summary *domain.RunSummary) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if r.cfg.Dir != "" {
		if err := r.writeJSON(summary); err != nil {
			r.log.Error("json report failed", "error", err.Error())
			record(err)
		}
		if err := r.writeCSV(summary); err != nil {
			r.log.Error("csv report failed", "error", err.Error())
			record(err)
		}
	}

	if r.cfg.Console {
		RenderSummary(os.Stdout, summary)
	}

	if r.shouldAlert(summary) {
		if err := r.mailer.Send(ctx, alertSubject(summary), alertBody(summary)); err != nil {
			r.log.Error("alert email failed", "error", err.Error())
			record(err)
		}
	}

	return firstErr
}

// writeJSON writes the full run summary as an indented JSON file.
func (r *Reporter) writeJSON(summary *domain.RunSummary) error {
	if err := os.MkdirAll(r.cfg.Dir, reportDirPerm); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, marshalErr := json.MarshalIndent(summary, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("marshal summary: %w", marshalErr)
	}

	path := r.reportPath(summary, "json")
	if err := os.WriteFile(path, data, reportFilePerm); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}

	r.log.Info("json report written", "path", path)
	return nil
}

// csvHeader is the column layout of the changes CSV.
var csvHeader = []string{
	"record_id", "record_name", "change_type", "changed_fields", "detected_at",
}

// writeCSV writes the run's change records as a CSV file.
func (r *Reporter) writeCSV(summary *domain.RunSummary) error {
	if err := os.MkdirAll(r.cfg.Dir, reportDirPerm); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	path := r.reportPath(summary, "csv")
	file, createErr := os.Create(path)
	if createErr != nil {
		return fmt.Errorf("create csv report: %w", createErr)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range summary.Changes {
		change := &summary.Changes[i]
		row := []string{
			change.RecordID,
			change.RecordName,
			string(change.ChangeType),
			strings.Join(change.ChangedFields, ";"),
			change.DetectedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv report: %w", err)
	}

	r.log.Info("csv report written", "path", path, "changes", len(summary.Changes))
	return nil
}

// reportPath builds the report file path for one run.
func (r *Reporter) reportPath(summary *domain.RunSummary, ext string) string {
	name := fmt.Sprintf("run-%s-%s.%s",
		summary.StartedAt.UTC().Format("20060102-150405"),
		summary.RunID,
		ext,
	)
	return filepath.Join(r.cfg.Dir, name)
}

// shouldAlert reports whether the run warrants an email: it failed, or it
// detected at least one change.
func (r *Reporter) shouldAlert(summary *domain.RunSummary) bool {
	if !r.cfg.Email.Enabled {
		return false
	}
	return summary.State == domain.RunStateFailed || len(summary.Changes) > 0
}

// alertSubject builds the alert email subject line.
func alertSubject(summary *domain.RunSummary) string {
	if summary.State == domain.RunStateFailed {
		return fmt.Sprintf("bookwatch: crawl run %s failed", summary.RunID)
	}
	return fmt.Sprintf("bookwatch: %d changes detected in run %s",
		len(summary.Changes), summary.RunID)
}

// alertBody builds the plain-text alert email body.
func alertBody(summary *domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:       %s\n", summary.RunID)
	fmt.Fprintf(&b, "State:     %s\n", summary.State)
	fmt.Fprintf(&b, "Started:   %s\n", summary.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Pages:     %d\n", summary.PagesCrawled)
	fmt.Fprintf(&b, "Records:   %d (%d ok, %d failed, %d skipped)\n",
		summary.TotalRecords, summary.Succeeded, summary.Failed, summary.Skipped)
	fmt.Fprintf(&b, "Changes:   %d new, %d updated, %d deleted\n",
		summary.CountByType(domain.ChangeTypeNew),
		summary.CountByType(domain.ChangeTypeUpdated),
		summary.CountByType(domain.ChangeTypeDeleted),
	)

	if summary.FailureReason != "" {
		fmt.Fprintf(&b, "Failure:   %s\n", summary.FailureReason)
	}

	if len(summary.Changes) > 0 {
		b.WriteString("\nChanged records:\n")
		for i := range summary.Changes {
			change := &summary.Changes[i]
			fmt.Fprintf(&b, "  [%s] %s (%s)\n",
				change.ChangeType, change.RecordName, change.RecordID)
		}
	}

	return b.String()
}
