package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the bot gateway.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	mutationsTotal  *prometheus.CounterVec
	paymentsTotal   prometheus.Counter
	remindersTotal  prometheus.Counter
	llmDuration     *prometheus.HistogramVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	messagesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inbound_messages_total",
		Help: "Inbound WhatsApp messages by classified operation",
	}, []string{"operation"})

	mutationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Ledger rows applied by kind and outcome",
	}, []string{"kind", "outcome"})

	paymentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_captured_total",
		Help: "Gateway payments recorded through the webhook",
	})

	remindersTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Fee reminders delivered to guardians",
	})

	llmDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_call_duration_seconds",
		Help:    "Duration of language-model calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"purpose"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, messagesTotal, mutationsTotal, paymentsTotal, remindersTotal, llmDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		messagesTotal:   messagesTotal,
		mutationsTotal:  mutationsTotal,
		paymentsTotal:   paymentsTotal,
		remindersTotal:  remindersTotal,
		llmDuration:     llmDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveInboundMessage counts one classified message.
func (m *MetricsService) ObserveInboundMessage(operation string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(operation).Inc()
}

// ObserveMutation counts one applied ledger row.
func (m *MetricsService) ObserveMutation(kind string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "fail"
	}
	m.mutationsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObservePaymentCaptured counts one recorded gateway payment.
func (m *MetricsService) ObservePaymentCaptured() {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
}

// ObserveReminderSent counts one delivered reminder.
func (m *MetricsService) ObserveReminderSent() {
	if m == nil {
		return
	}
	m.remindersTotal.Inc()
}

// ObserveLLMCall records the latency of one model call.
func (m *MetricsService) ObserveLLMCall(purpose string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(purpose).Observe(duration.Seconds())
}
