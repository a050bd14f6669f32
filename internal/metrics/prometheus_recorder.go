package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "worktime"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions      *prom.CounterVec
	ignored          *prom.CounterVec
	persistDuration  *prom.HistogramVec
	persistFailures  prom.Counter
	mirrorFailures   prom.Counter
	commitOutcomes   *prom.CounterVec
	netWorkedSeconds prom.Gauge
	warningLevel     prom.Gauge
	outboxPending    prom.Gauge
	dayRollovers     *prom.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Applied session transitions by event kind",
		}, []string{"kind"}),
		ignored: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "session_ignored_transitions_total",
			Help:      "Actions ignored because they were not legal in the current state",
		}, []string{"kind"}),
		persistDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Duration of local session record writes",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		persistFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed local session record writes",
		}),
		mirrorFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_failures_total",
			Help:      "Failed best-effort mirror writes",
		}),
		commitOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commit_outcomes_total",
			Help:      "Time entry submissions by outcome",
		}, []string{"outcome"}),
		netWorkedSeconds: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "net_worked_seconds",
			Help:      "Net worked seconds today at the last refresh",
		}),
		warningLevel: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "warning_level",
			Help:      "0 none, 1 approaching, 2 exceeded",
		}),
		outboxPending: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "commit_outbox_pending",
			Help:      "Time entries waiting for redelivery",
		}),
		dayRollovers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "day_rollovers_total",
			Help:      "Day boundary resets, labelled by whether an active session was discarded",
		}, []string{"discarded_active"}),
	}
	reg.MustRegister(pr.transitions, pr.ignored, pr.persistDuration, pr.persistFailures, pr.mirrorFailures,
		pr.commitOutcomes, pr.netWorkedSeconds, pr.warningLevel, pr.outboxPending, pr.dayRollovers)
	return pr
}

func (p *PrometheusRecorder) IncTransition(kind string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncIgnoredTransition(kind string) {
	if p == nil {
		return
	}
	p.ignored.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) ObservePersistDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	} else {
		p.persistFailures.Inc()
	}
	p.persistDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncMirrorFailure() {
	if p == nil {
		return
	}
	p.mirrorFailures.Inc()
}

func (p *PrometheusRecorder) IncCommitOutcome(outcome CommitOutcome) {
	if p == nil {
		return
	}
	p.commitOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetNetWorkedSeconds(v int64) {
	if p == nil {
		return
	}
	p.netWorkedSeconds.Set(float64(v))
}

func (p *PrometheusRecorder) SetWarningLevel(level int) {
	if p == nil {
		return
	}
	p.warningLevel.Set(float64(level))
}

func (p *PrometheusRecorder) SetOutboxPending(n int) {
	if p == nil {
		return
	}
	p.outboxPending.Set(float64(n))
}

func (p *PrometheusRecorder) IncDayRollover(discardedActive bool) {
	if p == nil {
		return
	}
	label := "false"
	if discardedActive {
		label = "true"
	}
	p.dayRollovers.WithLabelValues(label).Inc()
}
