package metrics

import (
	"context"
	"crypto-oracle-bot/internal/alert"
	"crypto-oracle-bot/internal/report"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type memStore struct {
	plain    map[string]float64
	labelled map[string]map[string]map[string]float64
}

func newMemStore() *memStore {
	return &memStore{plain: map[string]float64{}, labelled: map[string]map[string]map[string]float64{}}
}

func (s *memStore) SaveMetric(ctx context.Context, name string, value float64) error {
	s.plain[name] = value
	return nil
}

func (s *memStore) GetMetric(ctx context.Context, name string) (float64, error) {
	return s.plain[name], nil
}

func (s *memStore) SaveMetricWithLabels(ctx context.Context, name, key, value string, v float64) error {
	if s.labelled[name] == nil {
		s.labelled[name] = map[string]map[string]float64{}
	}
	if s.labelled[name][key] == nil {
		s.labelled[name][key] = map[string]float64{}
	}
	s.labelled[name][key][value] = v
	return nil
}

func (s *memStore) GetMetricsWithLabels(ctx context.Context, name string) (map[string]map[string]float64, error) {
	return s.labelled[name], nil
}

func TestObservers(t *testing.T) {
	m := NewBotMetrics(prometheus.NewRegistry())

	m.ObserveTick(alert.TickResult{Triggered: 3, Failed: 1, Remaining: 4}, nil)
	m.ObserveTick(alert.TickResult{}, errors.New("load failed"))
	m.ObserveBroadcast(report.BroadcastResult{Sent: 2, Failed: 1}, nil)
	m.UpstreamRetry("rate_limited")
	m.UpstreamRetry("rate_limited")

	checks := []struct {
		name string
		got  prometheus.Collector
		want float64
	}{
		{"triggered", m.AlertsTriggered, 3},
		{"notifications failed", m.NotificationsFailed, 1},
		{"pending", m.AlertsPending, 4},
		{"failed checks", m.AlertChecks.WithLabelValues("error"), 1},
		{"reports sent", m.ReportsSent, 2},
		{"retries", m.UpstreamRetries.WithLabelValues("rate_limited"), 2},
	}
	for _, c := range checks {
		if v := GetMetricValue(c.got); v != c.want {
			t.Errorf("%s = %v, want %v", c.name, v, c.want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *BotMetrics
	m.ObserveTick(alert.TickResult{Triggered: 1}, nil)
	m.ObserveBroadcast(report.BroadcastResult{}, nil)
	m.UpstreamRetry("network")
	m.MessageHandled(1, "x")
	m.CommandProcessed()
	m.SetChannels(2)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	m := NewBotMetrics(prometheus.NewRegistry())
	m.CommandProcessed()
	m.MessageHandled(-100, "Crypto Talk")
	m.MessageHandled(-100, "Crypto Talk")
	m.UpstreamRetry("network")
	if err := m.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewBotMetrics(prometheus.NewRegistry())
	restored.Load(ctx, store)

	if v := GetMetricValue(restored.CommandsProcessed); v != 1 {
		t.Fatalf("commands_processed = %v, want 1", v)
	}
	if v := GetMetricValue(restored.MessagesPerChannel.WithLabelValues("-100", "Crypto Talk")); v != 2 {
		t.Fatalf("messages_per_channel = %v, want 2", v)
	}
	if v := GetMetricValue(restored.UpstreamRetries.WithLabelValues("network")); v != 1 {
		t.Fatalf("upstream_retries = %v, want 1", v)
	}
}
