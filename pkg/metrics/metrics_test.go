package metrics_test

import (
	"testing"

	"github.com/okian/pretor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func gatherValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
		return total
	}
	return 0
}

func TestManagerCounters(t *testing.T) {
	Convey("Given a manager on an isolated registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithRegistry(reg))

		Convey("When archive events are recorded", func() {
			m.RecordArchiveCreated()
			m.RecordArchiveLoaded()
			m.RecordArchiveLoaded()
			m.RecordArchiveSaved()

			Convey("Then the counters reflect them", func() {
				So(gatherValue(reg, "pretor_core_archives_created_total"), ShouldEqual, 1)
				So(gatherValue(reg, "pretor_core_archives_loaded_total"), ShouldEqual, 2)
				So(gatherValue(reg, "pretor_core_archives_saved_total"), ShouldEqual, 1)
			})
		})

		Convey("When reconciliation events are recorded", func() {
			m.RecordRowsRead(5)
			m.RecordBatchPlanned()
			m.RecordBatchCommitted()
			m.RecordBatchRejected("ambiguous")
			m.RecordBatchRejected("ambiguous")
			m.RecordBatchRejected("unmatched")

			Convey("Then counters and labels accumulate", func() {
				So(gatherValue(reg, "pretor_core_import_rows_read_total"), ShouldEqual, 5)
				So(gatherValue(reg, "pretor_core_import_batches_planned_total"), ShouldEqual, 1)
				So(gatherValue(reg, "pretor_core_import_batches_committed_total"), ShouldEqual, 1)
				So(gatherValue(reg, "pretor_core_import_batches_rejected_total"), ShouldEqual, 3)
			})
		})

		Convey("When query events are recorded", func() {
			m.RecordQueryRun()
			m.RecordQueryRows(7)

			Convey("Then query counters reflect them", func() {
				So(gatherValue(reg, "pretor_core_queries_run_total"), ShouldEqual, 1)
				So(gatherValue(reg, "pretor_core_query_rows_returned_total"), ShouldEqual, 7)
			})
		})
	})
}

func TestDisabledManager(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithRegistry(reg), metrics.WithEnabled(false))

		Convey("When events are recorded", func() {
			m.RecordArchiveCreated()
			m.RecordRowsRead(10)

			Convey("Then nothing is counted", func() {
				So(gatherValue(reg, "pretor_core_archives_created_total"), ShouldEqual, 0)
				So(gatherValue(reg, "pretor_core_import_rows_read_total"), ShouldEqual, 0)
			})
		})
	})
}

func TestNamespaceOption(t *testing.T) {
	Convey("Given a manager with a custom namespace", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithRegistry(reg),
			metrics.WithNamespace("grading"),
			metrics.WithSubsystem("import"),
		)

		Convey("When a counter is recorded", func() {
			m.RecordRevisionAppended()

			Convey("Then the metric carries the custom names", func() {
				So(gatherValue(reg, "grading_import_revisions_appended_total"), ShouldEqual, 1)
			})
		})
	})
}
