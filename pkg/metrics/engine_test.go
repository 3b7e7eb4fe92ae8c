package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsScanSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)

	metrics.ObserveScan("added", 25*time.Millisecond)
	metrics.ObserveScan("added", 30*time.Millisecond)
	metrics.ObserveScan("suppressed", 1*time.Millisecond)
	metrics.IncWeightUpdate()
	metrics.AddCooldownEvictions(4)
	metrics.IncBroadcastFailure("cart_updated")
	metrics.IncRedelivery("tag-scan-engine")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "scan_outcomes_total", "outcome", "added"); err != nil {
		t.Fatalf("fetch added: %v", err)
	} else if got != 2 {
		t.Fatalf("expected added=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "scan_outcomes_total", "outcome", "suppressed"); err != nil {
		t.Fatalf("fetch suppressed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected suppressed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "scan_duration_seconds", "outcome", "added"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "broadcast_failures_total", "event", "cart_updated"); err != nil {
		t.Fatalf("fetch broadcast failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected broadcast failures=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "consumer_redeliveries_total", "consumer", "tag-scan-engine"); err != nil {
		t.Fatalf("fetch redeliveries: %v", err)
	} else if got != 1 {
		t.Fatalf("expected redeliveries=1, got %f", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var metrics *EngineMetrics
	metrics.ObserveScan("added", time.Millisecond)
	metrics.IncWeightUpdate()
	metrics.AddCooldownEvictions(1)

	empty := NewEngineMetrics(nil)
	empty.ObserveScan("removed", time.Millisecond)
	empty.IncRedelivery("weight-engine")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
