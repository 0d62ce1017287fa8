package reporters

import "github.com/prometheus/client_golang/prometheus"

// PrometheusReporter records reaction-site activity as Prometheus counters,
// one label set per site/reaction pair. There is no teacher precedent for
// metrics in achemdb (it has none), so this is grounded on the
// prometheus/client_golang usage pattern itself (counter-per-event-kind
// with site/reaction labels) rather than on a specific pack file — see
// DESIGN.md.
type PrometheusReporter struct {
	scheduled  *prometheus.CounterVec
	started    *prometheus.CounterVec
	finished   *prometheus.CounterVec
	exceptions *prometheus.CounterVec
	noReply    *prometheus.CounterVec
	refused    *prometheus.CounterVec
	livelocks  *prometheus.CounterVec
}

// NewPrometheusReporter registers its counter vectors against reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewPrometheusReporter(reg prometheus.Registerer) *PrometheusReporter {
	r := &PrometheusReporter{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "reactions_scheduled_total",
			Help: "Reactions scheduled for dispatch.",
		}, []string{"site", "reaction"}),
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "reactions_started_total",
			Help: "Reaction bodies started.",
		}, []string{"site", "reaction"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "reactions_finished_total",
			Help: "Reaction bodies finished without error.",
		}, []string{"site", "reaction"}),
		exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "reaction_exceptions_total",
			Help: "Reaction bodies that panicked.",
		}, []string{"site", "reaction", "retried"}),
		noReply: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "replies_never_sent_total",
			Help: "Blocking molecules whose reaction finished without replying.",
		}, []string{"site", "reaction"}),
		refused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "pipelined_emissions_refused_total",
			Help: "Pipelined molecule emissions refused at the door.",
		}, []string{"site", "molecule"}),
		livelocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "join", Name: "livelocks_detected_total",
			Help: "Reaction pairs flagged as unavoidably indeterminate at install time.",
		}, []string{"site"}),
	}
	reg.MustRegister(r.scheduled, r.started, r.finished, r.exceptions, r.noReply, r.refused, r.livelocks)
	return r
}

func (r *PrometheusReporter) SchedulerAssigned(site, reaction string) {}

func (r *PrometheusReporter) ReactionScheduled(site, reaction string) {
	r.scheduled.WithLabelValues(site, reaction).Inc()
}

func (r *PrometheusReporter) ReactionStarted(site, reaction string) {
	r.started.WithLabelValues(site, reaction).Inc()
}

func (r *PrometheusReporter) ReactionFinished(site, reaction string) {
	r.finished.WithLabelValues(site, reaction).Inc()
}

func (r *PrometheusReporter) ReactionException(site, reaction string, err error, retried bool) {
	label := "false"
	if retried {
		label = "true"
	}
	r.exceptions.WithLabelValues(site, reaction, label).Inc()
}

func (r *PrometheusReporter) ReplyNeverSent(site, reaction string) {
	r.noReply.WithLabelValues(site, reaction).Inc()
}

func (r *PrometheusReporter) PipelinedEmissionRefused(site, molecule string) {
	r.refused.WithLabelValues(site, molecule).Inc()
}

func (r *PrometheusReporter) LivelockDetected(site, reactionA, reactionB string) {
	r.livelocks.WithLabelValues(site).Inc()
}
