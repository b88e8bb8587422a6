package services

import "github.com/prometheus/client_golang/prometheus"

var (
	reprisalsCreatedCounter prometheus.Counter
	clozeSetsCounter        *prometheus.CounterVec
	dispatchOutcomeCounter  *prometheus.CounterVec
	retryCounter            *prometheus.CounterVec
)

func init() {
	reprisalsCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reprise_reprisals_created_total",
			Help: "Total number of reprisals written by the selector.",
		},
	)
	clozeSetsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reprise_cloze_sets_total",
			Help: "Proposed cloze deletion sets by result (accepted, empty, duplicate, rejected).",
		},
		[]string{"result"},
	)
	dispatchOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reprise_dispatch_targets_total",
			Help: "Dispatch target times by outcome.",
		},
		[]string{"status"},
	)
	retryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reprise_external_retries_total",
			Help: "Retries of external calls after transient failures.",
		},
		[]string{"operation"},
	)
	prometheus.MustRegister(reprisalsCreatedCounter, clozeSetsCounter, dispatchOutcomeCounter, retryCounter)
}
