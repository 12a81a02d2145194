package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestBatchJobMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewBatchJobMetrics(reg)
	job := "overdue_escalation"
	metrics.ObserveDuration(job, 120*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterValue(t, mfs, "batch_job_success", job); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := counterValue(t, mfs, "batch_job_failure", job); got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	histogram := findFamily(mfs, "batch_job_duration_seconds")
	if histogram == nil {
		t.Fatal("duration histogram not registered")
	}
	if sum := histogram.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestBatchJobMetricsNilSafe(t *testing.T) {
	var metrics *BatchJobMetrics
	metrics.ObserveDuration("x", time.Second)
	metrics.IncSuccess("x")
	metrics.IncFailure("x")

	unregistered := NewBatchJobMetrics(nil)
	unregistered.IncSuccess("x")
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, job string) float64 {
	t.Helper()
	mf := findFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "job" && label.GetValue() == job {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %q missing job=%s", name, job)
	return 0
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
