package license

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName scopes this package's instruments.
const MeterName = "licforge/license"

// Metrics holds the OpenTelemetry instruments for license verification.
// A nil *Metrics is valid and records nothing, so instrumentation stays
// optional for library consumers.
type Metrics struct {
	verifyAttempts        metric.Int64Counter
	verifyFailures        metric.Int64Counter
	verifyDuration        metric.Float64Histogram
	fingerprintMismatches metric.Int64Counter
}

// NewMetrics creates the verification instruments on the given meter, or on
// the globally registered meter provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	m := &Metrics{}
	var err error

	m.verifyAttempts, err = meter.Int64Counter("license_verify_attempts_total",
		metric.WithDescription("License verification attempts"))
	if err != nil {
		return nil, err
	}
	m.verifyFailures, err = meter.Int64Counter("license_verify_failures_total",
		metric.WithDescription("License verification failures by outcome"))
	if err != nil {
		return nil, err
	}
	m.verifyDuration, err = meter.Float64Histogram("license_verify_duration_seconds",
		metric.WithDescription("License verification duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	m.fingerprintMismatches, err = meter.Int64Counter("license_fingerprint_mismatches_total",
		metric.WithDescription("Hardware fingerprint mismatches observed during verification"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordVerification(ctx context.Context, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.verifyAttempts.Add(ctx, 1)
	m.verifyDuration.Record(ctx, elapsed.Seconds())
	if err != nil {
		m.verifyFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", errorType(err))))
	}
}

func (m *Metrics) recordFingerprintMismatch(ctx context.Context) {
	if m == nil {
		return
	}
	m.fingerprintMismatches.Add(ctx, 1)
}
