package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage labels.
const (
	StageSignature   = "signature"
	StageRenderPage  = "render_page"
	StageExtractPage = "extract_page"
	StageCompare     = "compare"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Latency of each pipeline stage
	StageLatency *prometheus.HistogramVec

	// Terminal outcomes: "success" or a failure kind
	Outcomes *prometheus.CounterVec

	// Pages visited before the extraction loop stopped
	PagesEvaluated prometheus.Histogram

	SessionsCreated prometheus.Counter

	// Pipeline results dropped because the session moved on
	LateResults prometheus.Counter
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "altid_verification_stage_duration_seconds",
			Help:    "Duration of verification pipeline stages",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"stage"}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "altid_verification_outcomes_total",
			Help: "Verification attempts by stage and outcome",
		}, []string{"stage", "outcome"}), // stage: "document", "selfie"

		PagesEvaluated: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "altid_verification_pages_evaluated",
			Help:    "Document pages sent for extraction per upload",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		}),

		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "altid_verification_sessions_created_total",
			Help: "Verification sessions created",
		}),

		LateResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "altid_verification_late_results_total",
			Help: "Pipeline results discarded because the session was reset or expired",
		}),
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementOutcome records a terminal result of a pipeline stage.
func (m *Metrics) IncrementOutcome(stage, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(stage, outcome).Inc()
	}
}

func (m *Metrics) ObservePagesEvaluated(n int) {
	if m != nil {
		m.PagesEvaluated.Observe(float64(n))
	}
}

func (m *Metrics) IncrementSessionsCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

func (m *Metrics) IncrementLateResults() {
	if m != nil {
		m.LateResults.Inc()
	}
}
