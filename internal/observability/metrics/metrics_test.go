package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "recorded"),
		attribute.String("patient_id", "456"),
		attribute.String("action", "opened"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
	if attrs[0].Key != "action" && attrs[1].Key != "action" {
		t.Fatalf("expected action to be retained")
	}
}

func TestRecordReceiptCountsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "clinicledger-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordReceipt(ctx, OutcomeRecorded)
	m.RecordReceipt(ctx, OutcomeRecorded)
	m.RecordReceipt(ctx, OutcomeRejected)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "clinicledger_receipts_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				totals[outcome.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), totals[OutcomeRecorded])
	assert.Equal(t, int64(1), totals[OutcomeRejected])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordReceipt(context.Background(), OutcomeFailed)
	m.RecordAdmission(context.Background(), OutcomeBlocked)
}
