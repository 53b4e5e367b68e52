package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat and booking flows.
type ChatMetrics struct {
	chatTotal     *prometheus.CounterVec
	bookingsTotal *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadbot",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total chat requests by resolved intent",
		}, []string{"intent", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadbot",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadbot",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of text-completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTotal, m.bookingsTotal, m.llmLatency)
	return m
}

func (m *ChatMetrics) ObserveChat(intent, status string) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(intent, status).Inc()
}

func (m *ChatMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveLLMLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(operation).Observe(seconds)
}
