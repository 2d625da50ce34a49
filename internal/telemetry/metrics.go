package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/wallchart"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Roster import metrics
	ImportRunsTotal       metric.Int64Counter
	ImportFailuresTotal   metric.Int64Counter
	ImportRowsTotal       metric.Int64Counter
	ImportDuration        metric.Float64Histogram
	WorkersNewTotal       metric.Int64Counter
	WorkersReturningTotal metric.Int64Counter
	WorkersDepartedTotal  metric.Int64Counter

	// Participation metrics
	ParticipationTogglesTotal metric.Int64Counter

	// Session metrics
	LoginAttemptsTotal metric.Int64Counter

	// Backup metrics
	BackupsTotal      metric.Int64Counter
	BackupBytesTotal  metric.Int64Counter
	BackupErrorsTotal metric.Int64Counter

	// HTTP metrics
	HTTPRequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Roster import metrics
	m.ImportRunsTotal, _ = meter.Int64Counter(
		"wallchart.imports.runs.total",
		metric.WithDescription("Total number of roster imports committed"),
		metric.WithUnit("{import}"),
	)

	m.ImportFailuresTotal, _ = meter.Int64Counter(
		"wallchart.imports.failures.total",
		metric.WithDescription("Total number of roster imports rejected or rolled back"),
		metric.WithUnit("{import}"),
	)

	m.ImportRowsTotal, _ = meter.Int64Counter(
		"wallchart.imports.rows.total",
		metric.WithDescription("Total number of roster rows reconciled"),
		metric.WithUnit("{row}"),
	)

	m.ImportDuration, _ = meter.Float64Histogram(
		"wallchart.imports.duration",
		metric.WithDescription("Duration of roster reconciliation runs"),
		metric.WithUnit("ms"),
	)

	m.WorkersNewTotal, _ = meter.Int64Counter(
		"wallchart.workers.new.total",
		metric.WithDescription("Total number of workers created by roster imports"),
		metric.WithUnit("{worker}"),
	)

	m.WorkersReturningTotal, _ = meter.Int64Counter(
		"wallchart.workers.returning.total",
		metric.WithDescription("Total number of inactive workers reactivated by roster imports"),
		metric.WithUnit("{worker}"),
	)

	m.WorkersDepartedTotal, _ = meter.Int64Counter(
		"wallchart.workers.departed.total",
		metric.WithDescription("Total number of workers marked inactive by roster imports"),
		metric.WithUnit("{worker}"),
	)

	// Participation metrics
	m.ParticipationTogglesTotal, _ = meter.Int64Counter(
		"wallchart.participation.toggles.total",
		metric.WithDescription("Total number of participation toggles by outcome"),
		metric.WithUnit("{toggle}"),
	)

	// Session metrics
	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"wallchart.sessions.login_attempts.total",
		metric.WithDescription("Total number of login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)

	// Backup metrics
	m.BackupsTotal, _ = meter.Int64Counter(
		"wallchart.backups.total",
		metric.WithDescription("Total number of backup artifacts written"),
		metric.WithUnit("{backup}"),
	)

	m.BackupBytesTotal, _ = meter.Int64Counter(
		"wallchart.backups.bytes.total",
		metric.WithDescription("Total compressed bytes of backup artifacts written"),
		metric.WithUnit("By"),
	)

	m.BackupErrorsTotal, _ = meter.Int64Counter(
		"wallchart.backups.errors.total",
		metric.WithDescription("Total number of failed backups"),
		metric.WithUnit("{error}"),
	)

	// HTTP metrics
	m.HTTPRequestDuration, _ = meter.Float64Histogram(
		"wallchart.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	return m
}
