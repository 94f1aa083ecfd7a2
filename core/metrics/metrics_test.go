package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistryRegistersAllMetrics(t *testing.T) {
	m := NewRegistry()
	m.SyncStepsTotal.Inc()
	m.TxDiscardedTotal.WithLabelValues("prove").Inc()

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected registered metric families, got none")
	}

	var found bool
	for _, f := range families {
		if f.GetName() == "miden_client_sync_steps_total" {
			found = true
			if got := f.Metric[0].GetCounter().GetValue(); got != 1 {
				t.Fatalf("steps_total=%v want 1", got)
			}
		}
	}
	if !found {
		t.Fatalf("miden_client_sync_steps_total not registered")
	}
}

func TestTxDiscardedTotalLabelsByPhase(t *testing.T) {
	m := NewRegistry()
	m.TxDiscardedTotal.WithLabelValues("prove").Inc()
	m.TxDiscardedTotal.WithLabelValues("submit").Inc()
	m.TxDiscardedTotal.WithLabelValues("submit").Inc()

	var metric dto.Metric
	if err := m.TxDiscardedTotal.WithLabelValues("submit").Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Fatalf("submit discards=%v want 2", got)
	}
}
