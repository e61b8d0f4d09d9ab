package ledger_test

import (
	"testing"
	"time"

	"github.com/okian/pretor/internal/ledger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAppend(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		var l ledger.Ledger
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("When revisions are appended", func() {
			l1 := l.Append(map[string]float64{"hw1": 0.1}, now)
			l2 := l1.Append(map[string]float64{"hw2": 0.2}, now.Add(time.Hour))

			Convey("Then sequence numbers are contiguous from zero", func() {
				revs := l2.Revisions()
				So(len(revs), ShouldEqual, 2)
				So(revs[0].Seq, ShouldEqual, 0)
				So(revs[1].Seq, ShouldEqual, 1)
				So(revs[1].Timestamp, ShouldEqual, now.Add(time.Hour))
			})

			Convey("And earlier ledger values are untouched", func() {
				So(l.Len(), ShouldEqual, 0)
				So(l1.Len(), ShouldEqual, 1)
				So(l2.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the caller mutates its contribution map after appending", func() {
			contribs := map[string]float64{"hw1": 0.1}
			l1 := l.Append(contribs, now)
			contribs["hw1"] = 0.9

			Convey("Then the stored revision keeps the original value", func() {
				So(l1.Scorecard()["hw1"], ShouldEqual, 0.1)
			})
		})
	})
}

func TestScorecardFold(t *testing.T) {
	Convey("Given a ledger touching the same component across revisions", t, func() {
		now := time.Now()
		var l ledger.Ledger
		l = l.Append(map[string]float64{"hw1": 0.1, "hw2": 0.05}, now)
		l = l.Append(map[string]float64{"hw1": 0.2}, now)
		l = l.Append(map[string]float64{"hw1": 0.3}, now)

		Convey("When the scorecard is folded", func() {
			sc := l.Scorecard()

			Convey("Then the latest revision wins per component", func() {
				So(sc["hw1"], ShouldEqual, 0.3)
			})

			Convey("And components untouched by later revisions survive", func() {
				So(sc["hw2"], ShouldEqual, 0.05)
			})
		})
	})

	Convey("Given a ledger holding only metadata-only revisions", t, func() {
		var l ledger.Ledger
		l = l.Append(nil, time.Now())

		Convey("Then it does not count as graded", func() {
			So(l.Graded(), ShouldBeFalse)
			So(len(l.Scorecard()), ShouldEqual, 0)
		})
	})
}

func TestFromRevisions(t *testing.T) {
	Convey("Given stored revisions", t, func() {
		now := time.Now()

		Convey("When they are contiguous from zero", func() {
			l, err := ledger.FromRevisions([]ledger.Revision{
				{Seq: 0, Timestamp: now, Contributions: map[string]float64{"hw1": 0.1}},
				{Seq: 1, Timestamp: now, Contributions: map[string]float64{"hw1": 0.2}},
			})

			Convey("Then the ledger reconstructs", func() {
				So(err, ShouldBeNil)
				So(l.Len(), ShouldEqual, 2)
				So(l.Scorecard()["hw1"], ShouldEqual, 0.2)
			})
		})

		Convey("When sequence numbers have a gap", func() {
			_, err := ledger.FromRevisions([]ledger.Revision{
				{Seq: 0, Timestamp: now},
				{Seq: 2, Timestamp: now},
			})

			Convey("Then the ledger is rejected as corrupt", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "corrupt")
			})
		})

		Convey("When sequence numbers do not start at zero", func() {
			_, err := ledger.FromRevisions([]ledger.Revision{
				{Seq: 1, Timestamp: now},
			})
			So(err, ShouldNotBeNil)
		})
	})
}
