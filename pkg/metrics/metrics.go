// Package metrics provides Prometheus instrumentation for the pretor tools.
//
// The tools are one-shot CLIs, so nothing is scraped over HTTP; counters are
// collected on a package registry and are primarily useful to embedding
// callers and tests. Gather() exposes the registry contents.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Manager owns all Prometheus metrics for the pretor tools.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Archive store metrics
	archivesCreated prometheus.Counter
	archivesLoaded  prometheus.Counter
	archivesSaved   prometheus.Counter

	// Ledger metrics
	revisionsAppended prometheus.Counter

	// Reconciliation metrics
	rowsRead         prometheus.Counter
	batchesPlanned   prometheus.Counter
	batchesCommitted prometheus.Counter
	batchesRejected  *prometheus.CounterVec
	commitLatency    prometheus.Histogram

	// Query metrics
	queriesRun        prometheus.Counter
	queryRowsReturned prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Package registry so the default Go runtime collectors stay out of the way.
var packageRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(packageRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pretor",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
		m.registry.MustRegister(c)
		return c
	}

	m.archivesCreated = factory("archives_created_total", "Number of PSF archives created.")
	m.archivesLoaded = factory("archives_loaded_total", "Number of PSF archives opened from disk.")
	m.archivesSaved = factory("archives_saved_total", "Number of PSF archives persisted back to disk.")
	m.revisionsAppended = factory("revisions_appended_total", "Number of ledger revisions appended.")
	m.rowsRead = factory("import_rows_read_total", "Number of grade rows read from input.")
	m.batchesPlanned = factory("import_batches_planned_total", "Number of reconciliation batches that passed validation.")
	m.batchesCommitted = factory("import_batches_committed_total", "Number of reconciliation batches committed in full.")
	m.queriesRun = factory("queries_run_total", "Number of ad-hoc queries evaluated.")
	m.queryRowsReturned = factory("query_rows_returned_total", "Number of rows returned by ad-hoc queries.")

	m.batchesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "import_batches_rejected_total",
		Help:      "Number of reconciliation batches rejected, by reason.",
	}, []string{"reason"})
	m.registry.MustRegister(m.batchesRejected)

	m.commitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "import_commit_duration_seconds",
		Help:      "Wall time of the reconciliation commit phase.",
		Buckets:   m.histogramBuckets,
	})
	m.registry.MustRegister(m.commitLatency)
}

// Manager-level recording methods.

func (m *Manager) RecordArchiveCreated() {
	if m.enabled {
		m.archivesCreated.Inc()
	}
}

func (m *Manager) RecordArchiveLoaded() {
	if m.enabled {
		m.archivesLoaded.Inc()
	}
}

func (m *Manager) RecordArchiveSaved() {
	if m.enabled {
		m.archivesSaved.Inc()
	}
}

func (m *Manager) RecordRevisionAppended() {
	if m.enabled {
		m.revisionsAppended.Inc()
	}
}

func (m *Manager) RecordRowsRead(n int) {
	if m.enabled {
		m.rowsRead.Add(float64(n))
	}
}

func (m *Manager) RecordBatchPlanned() {
	if m.enabled {
		m.batchesPlanned.Inc()
	}
}

func (m *Manager) RecordBatchCommitted() {
	if m.enabled {
		m.batchesCommitted.Inc()
	}
}

// RecordBatchRejected counts a failed batch; reason is one of
// "unmatched", "ambiguous", "configuration", "io".
func (m *Manager) RecordBatchRejected(reason string) {
	if m.enabled {
		m.batchesRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Manager) RecordCommitDuration(seconds float64) {
	if m.enabled {
		m.commitLatency.Observe(seconds)
	}
}

func (m *Manager) RecordQueryRun() {
	if m.enabled {
		m.queriesRun.Inc()
	}
}

func (m *Manager) RecordQueryRows(n int) {
	if m.enabled {
		m.queryRowsReturned.Add(float64(n))
	}
}

// Package-level helpers recording against the global manager.

func RecordArchiveCreated()             { globalManager.RecordArchiveCreated() }
func RecordArchiveLoaded()              { globalManager.RecordArchiveLoaded() }
func RecordArchiveSaved()               { globalManager.RecordArchiveSaved() }
func RecordRevisionAppended()           { globalManager.RecordRevisionAppended() }
func RecordRowsRead(n int)              { globalManager.RecordRowsRead(n) }
func RecordBatchPlanned()               { globalManager.RecordBatchPlanned() }
func RecordBatchCommitted()             { globalManager.RecordBatchCommitted() }
func RecordBatchRejected(reason string) { globalManager.RecordBatchRejected(reason) }
func RecordCommitDuration(sec float64)  { globalManager.RecordCommitDuration(sec) }
func RecordQueryRun()                   { globalManager.RecordQueryRun() }
func RecordQueryRows(n int)             { globalManager.RecordQueryRows(n) }

// Gather returns the current contents of the package registry.
func Gather() ([]*dto.MetricFamily, error) {
	return packageRegistry.Gather()
}
