package stm

import "github.com/prometheus/client_golang/prometheus"

// txMetrics is pure observability: nothing here ever influences the commit
// protocol's outcome, it only reports on it. Registered against whatever
// prometheus.Registerer a Manager was built with, so embedding programs
// choose whether/where to expose /metrics rather than having the counters
// land in a global default registry.
type txMetrics struct {
	started         *prometheus.CounterVec
	committed       prometheus.Counter
	fastPathCommits prometheus.Counter
	abortedRead     prometheus.Counter
	abortedLock     prometheus.Counter
	abortedValidate prometheus.Counter
	writeSetSize    prometheus.Histogram
}

func newTxMetrics(reg prometheus.Registerer) *txMetrics {
	if reg == nil {
		// A private, unexposed registry: counters stay real (no nil
		// checks scattered through the hot path) but nothing is ever
		// scraped unless the caller supplied its own registerer.
		reg = prometheus.NewRegistry()
	}

	m := &txMetrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stm_transactions_started_total",
			Help: "Transactions started, by kind.",
		}, []string{"kind"}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stm_transactions_committed_total",
			Help: "Update transactions that committed successfully.",
		}),
		fastPathCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stm_commits_fast_path_total",
			Help: "Commits that skipped read-set validation because no writer committed since start.",
		}),
		abortedRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stm_aborts_on_read_total",
			Help: "Reads that aborted their transaction on an inconsistent snapshot.",
		}),
		abortedLock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stm_aborts_on_lock_acquire_total",
			Help: "Commits that aborted because a write-set lock could not be acquired.",
		}),
		abortedValidate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stm_aborts_on_validate_total",
			Help: "Commits that aborted because the read-set failed validation.",
		}),
		writeSetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stm_commit_write_set_size",
			Help:    "Number of distinct addresses in an update transaction's write-set at commit time.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
	}

	reg.MustRegister(
		m.started,
		m.committed,
		m.fastPathCommits,
		m.abortedRead,
		m.abortedLock,
		m.abortedValidate,
		m.writeSetSize,
	)
	return m
}
