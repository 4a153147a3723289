package metrics

import (
	"context"
	"crypto-oracle-bot/internal/alert"
	"crypto-oracle-bot/internal/report"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	"sync"
)

const (
	namespace = "crypto_oracle"
	subsystem = "bot"
)

// Store persists metric values between restarts
type Store interface {
	SaveMetric(ctx context.Context, metricName string, value float64) error
	GetMetric(ctx context.Context, metricName string) (float64, error)
	SaveMetricWithLabels(ctx context.Context, metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(ctx context.Context, metricName string) (map[string]map[string]float64, error)
}

type BotMetrics struct {
	CommandsProcessed   prometheus.Counter
	MessagesHandled     prometheus.Counter
	ChannelsCount       prometheus.Gauge
	MessagesPerChannel  *prometheus.CounterVec
	AlertChecks         *prometheus.CounterVec
	AlertsTriggered     prometheus.Counter
	NotificationsFailed prometheus.Counter
	AlertsPending       prometheus.Gauge
	UpstreamRetries     *prometheus.CounterVec
	ReportsSent         prometheus.Counter
	ReportsFailed       prometheus.Counter
	ReportRuns          *prometheus.CounterVec

	mutex sync.Mutex
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// NewBotMetrics creates the bot's series and registers them on reg
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		CommandsProcessed:   counter("commands_processed", "The total number of processed commands"),
		MessagesHandled:     counter("messages_handled", "The total number of handled messages"),
		ChannelsCount:       gauge("channels_count", "The current number of group chats the bot is operating in"),
		MessagesPerChannel:  counterVec("messages_per_channel", "The total number of messages handled per chat", "chat_id", "chat_name"),
		AlertChecks:         counterVec("alert_checks", "The total number of alert checks by result", "result"),
		AlertsTriggered:     counter("alerts_triggered", "The total number of triggered alerts"),
		NotificationsFailed: counter("notifications_failed", "The total number of alert notifications that could not be delivered"),
		AlertsPending:       gauge("alerts_pending", "The number of stored alerts after the last check"),
		UpstreamRetries:     counterVec("upstream_retries", "The total number of retried market data calls by reason", "reason"),
		ReportsSent:         counter("reports_sent", "The total number of delivered daily reports"),
		ReportsFailed:       counter("reports_failed", "The total number of daily reports that could not be delivered"),
		ReportRuns:          counterVec("report_runs", "The total number of daily report runs by result", "result"),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.ChannelsCount,
		m.MessagesPerChannel,
		m.AlertChecks,
		m.AlertsTriggered,
		m.NotificationsFailed,
		m.AlertsPending,
		m.UpstreamRetries,
		m.ReportsSent,
		m.ReportsFailed,
		m.ReportRuns,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTick records the outcome of an alert check
func (m *BotMetrics) ObserveTick(res alert.TickResult, err error) {
	if m == nil {
		return
	}
	m.AlertChecks.WithLabelValues(result(err)).Inc()
	m.AlertsTriggered.Add(float64(res.Triggered))
	m.NotificationsFailed.Add(float64(res.Failed))
	if err == nil {
		m.AlertsPending.Set(float64(res.Remaining))
	}
}

// ObserveBroadcast records the outcome of a daily report run
func (m *BotMetrics) ObserveBroadcast(res report.BroadcastResult, err error) {
	if m == nil {
		return
	}
	m.ReportRuns.WithLabelValues(result(err)).Inc()
	m.ReportsSent.Add(float64(res.Sent))
	m.ReportsFailed.Add(float64(res.Failed))
}

// UpstreamRetry counts a retried market data call
func (m *BotMetrics) UpstreamRetry(reason string) {
	if m == nil {
		return
	}
	m.UpstreamRetries.WithLabelValues(reason).Inc()
}

// MessageHandled counts a message addressed to the bot
func (m *BotMetrics) MessageHandled(chatID int64, chatName string) {
	if m == nil {
		return
	}
	m.MessagesHandled.Inc()
	m.MessagesPerChannel.WithLabelValues(fmt.Sprintf("%d", chatID), chatName).Inc()
}

// CommandProcessed counts an answered command
func (m *BotMetrics) CommandProcessed() {
	if m == nil {
		return
	}
	m.CommandsProcessed.Inc()
}

// SetChannels updates the number of known group chats
func (m *BotMetrics) SetChannels(n int) {
	if m == nil {
		return
	}
	m.ChannelsCount.Set(float64(n))
}

var persistedCounters = []string{
	"commands_processed",
	"messages_handled",
	"alerts_triggered",
	"notifications_failed",
	"reports_sent",
	"reports_failed",
}

func (m *BotMetrics) counters() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"commands_processed":   m.CommandsProcessed,
		"messages_handled":     m.MessagesHandled,
		"alerts_triggered":     m.AlertsTriggered,
		"notifications_failed": m.NotificationsFailed,
		"reports_sent":         m.ReportsSent,
		"reports_failed":       m.ReportsFailed,
	}
}

// Load restores persisted counters, errors are logged and skipped
func (m *BotMetrics) Load(ctx context.Context, store Store) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	counters := m.counters()
	for _, name := range persistedCounters {
		value, err := store.GetMetric(ctx, name)
		if err != nil {
			log.WithError(err).Warnf("Failed to load metric %s", name)
			continue
		}
		counters[name].Add(value)
	}

	loadLabeledMetrics(ctx, store, "messages_per_channel", func(chatID, chatName string, value float64) {
		m.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
	})
	loadLabeledMetrics(ctx, store, "upstream_retries", func(_, reason string, value float64) {
		m.UpstreamRetries.WithLabelValues(reason).Add(value)
	})

	log.Info("Metrics loaded from database.")
}

func loadLabeledMetrics(ctx context.Context, store Store, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := store.GetMetricsWithLabels(ctx, metricName)
	if err != nil {
		log.WithError(err).Warnf("Failed to load metric %s", metricName)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// Save writes the current counters to store
func (m *BotMetrics) Save(ctx context.Context, store Store) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	counters := m.counters()
	for _, name := range persistedCounters {
		if err := store.SaveMetric(ctx, name, GetMetricValue(counters[name])); err != nil {
			return err
		}
	}

	err := collectLabeled(m.MessagesPerChannel, func(labels map[string]string, value float64) error {
		return store.SaveMetricWithLabels(ctx, "messages_per_channel", labels["chat_id"], labels["chat_name"], value)
	})
	if err != nil {
		return err
	}
	err = collectLabeled(m.UpstreamRetries, func(labels map[string]string, value float64) error {
		return store.SaveMetricWithLabels(ctx, "upstream_retries", "reason", labels["reason"], value)
	})
	if err != nil {
		return err
	}

	log.Debug("Metrics saved to database.")
	return nil
}

func collectLabeled(vec *prometheus.CounterVec, fn func(labels map[string]string, value float64) error) error {
	metricChan := make(chan prometheus.Metric)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	var firstErr error
	for metric := range metricChan {
		if firstErr != nil {
			continue
		}
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.WithError(err).Warn("Failed to read labelled metric")
			continue
		}
		labels := make(map[string]string, len(metricProto.Label))
		for _, label := range metricProto.Label {
			labels[label.GetName()] = label.GetValue()
		}
		firstErr = fn(labels, metricProto.Counter.GetValue())
	}
	return firstErr
}

// GetMetricValue reads the current value of a single counter or gauge
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.WithError(err).Warn("Failed to read metric value")
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
