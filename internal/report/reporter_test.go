package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/report"
)

// fakeMailer records sent alert emails.
type fakeMailer struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeMailer) Send(_ context.Context, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeMailer) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subjects
}

func sampleSummary() *domain.RunSummary {
	return &domain.RunSummary{
		RunID:        "run-1234",
		State:        domain.RunStateCompleted,
		StartedAt:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		PagesCrawled: 3,
		TotalRecords: 6,
		Succeeded:    5,
		Failed:       1,
		Changes: []domain.ChangeRecord{
			{
				RecordID:      "book-2",
				RecordName:    "BOOK-2",
				ChangeType:    domain.ChangeTypeUpdated,
				ChangedFields: []string{"price.including_tax"},
				DetectedAt:    time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC),
			},
			{
				RecordID:   "book-7",
				RecordName: "BOOK-7",
				ChangeType: domain.ChangeTypeNew,
				DetectedAt: time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC),
			},
		},
	}
}

func reportFiles(t *testing.T, dir, ext string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "run-*."+ext))
	require.NoError(t, err)
	return matches
}

func TestPublishWritesJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	r := report.NewReporter(report.Config{Dir: dir}, logger.NewNoOp())

	require.NoError(t, r.Publish(context.Background(), sampleSummary()))

	jsonFiles := reportFiles(t, dir, "json")
	require.Len(t, jsonFiles, 1)

	data, readErr := os.ReadFile(jsonFiles[0])
	require.NoError(t, readErr)

	var decoded domain.RunSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1234", decoded.RunID)
	assert.Len(t, decoded.Changes, 2)

	csvFiles := reportFiles(t, dir, "csv")
	require.Len(t, csvFiles, 1)

	file, openErr := os.Open(csvFiles[0])
	require.NoError(t, openErr)
	defer file.Close()

	rows, csvErr := csv.NewReader(file).ReadAll()
	require.NoError(t, csvErr)
	require.Len(t, rows, 3, "header plus one row per change")
	assert.Equal(t, "record_id", rows[0][0])
	assert.Equal(t, "book-2", rows[1][0])
	assert.Equal(t, "updated", rows[1][2])
	assert.Equal(t, "price.including_tax", rows[1][3])
}

func TestPublishSendsAlertOnChanges(t *testing.T) {
	mailer := &fakeMailer{}
	r := report.NewReporter(report.Config{
		Email: report.EmailConfig{Enabled: true, To: []string{"ops@example.com"}},
	}, logger.NewNoOp(), report.WithMailer(mailer))

	require.NoError(t, r.Publish(context.Background(), sampleSummary()))

	require.Len(t, mailer.sent(), 1)
	assert.Contains(t, mailer.sent()[0], "2 changes")
	assert.Contains(t, mailer.bodies[0], "book-2")
}

func TestPublishSendsAlertOnFailure(t *testing.T) {
	mailer := &fakeMailer{}
	r := report.NewReporter(report.Config{
		Email: report.EmailConfig{Enabled: true, To: []string{"ops@example.com"}},
	}, logger.NewNoOp(), report.WithMailer(mailer))

	summary := sampleSummary()
	summary.State = domain.RunStateFailed
	summary.Changes = nil
	summary.FailureReason = "source unreachable"

	require.NoError(t, r.Publish(context.Background(), summary))

	require.Len(t, mailer.sent(), 1)
	assert.Contains(t, mailer.sent()[0], "failed")
	assert.Contains(t, mailer.bodies[0], "source unreachable")
}

func TestPublishSkipsAlertWhenNothingChanged(t *testing.T) {
	mailer := &fakeMailer{}
	r := report.NewReporter(report.Config{
		Email: report.EmailConfig{Enabled: true, To: []string{"ops@example.com"}},
	}, logger.NewNoOp(), report.WithMailer(mailer))

	summary := sampleSummary()
	summary.Changes = nil

	require.NoError(t, r.Publish(context.Background(), summary))
	assert.Empty(t, mailer.sent())
}

func TestPublishSkipsAlertWhenDisabled(t *testing.T) {
	mailer := &fakeMailer{}
	r := report.NewReporter(report.Config{}, logger.NewNoOp(), report.WithMailer(mailer))

	require.NoError(t, r.Publish(context.Background(), sampleSummary()))
	assert.Empty(t, mailer.sent())
}

func TestPublishReturnsFirstErrorButKeepsGoing(t *testing.T) {
	mailer := &fakeMailer{err: assert.AnError}
	dir := t.TempDir()
	r := report.NewReporter(report.Config{
		Dir:   dir,
		Email: report.EmailConfig{Enabled: true, To: []string{"ops@example.com"}},
	}, logger.NewNoOp(), report.WithMailer(mailer))

	err := r.Publish(context.Background(), sampleSummary())
	require.Error(t, err)

	// File reports were still written despite the mailer failure.
	assert.Len(t, reportFiles(t, dir, "json"), 1)
	assert.Len(t, reportFiles(t, dir, "csv"), 1)
}

func TestRenderSummaryShowsRunAndChanges(t *testing.T) {
	var buf bytes.Buffer
	report.RenderSummary(&buf, sampleSummary())

	out := buf.String()
	assert.Contains(t, out, "run-1234")
	assert.Contains(t, out, "book-2")
	assert.Contains(t, out, "price.including_tax")
	assert.Contains(t, out, "BOOK-7")
}
