package ledger_test

import (
	"testing"
	"time"

	"github.com/okian/pretor/internal/course"
	"github.com/okian/pretor/internal/ledger"
	. "github.com/smartystreets/goconvey/convey"
)

func testCourse() *course.Course {
	c, err := course.Parse([]byte(`
[course]
name = "CSCE145"

[hw1]
name = "Homework 1"
weight = 0.1

[hw2]
name = "Homework 2"
weight = 0.1
`))
	So(err, ShouldBeNil)
	return c
}

func TestOverall(t *testing.T) {
	Convey("Given a scorecard of weighted contributions", t, func() {
		c := testCourse()

		Convey("When all components are defined by the course", func() {
			sc := ledger.Scorecard{"hw1": 0.1, "hw2": 0.05}
			total, err := ledger.Overall(sc, c)

			Convey("Then the overall score is their sum", func() {
				So(err, ShouldBeNil)
				So(total, ShouldAlmostEqual, 0.15)
			})
		})

		Convey("When a component is unknown to the course", func() {
			sc := ledger.Scorecard{"hw1": 0.1, "ghost": 0.5}

			Convey("Then strict evaluation fails as a configuration error", func() {
				_, err := ledger.Overall(sc, c)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "ghost")
			})

			Convey("And tolerant evaluation skips it", func() {
				total, err := ledger.Overall(sc, c, ledger.Tolerant())
				So(err, ShouldBeNil)
				So(total, ShouldAlmostEqual, 0.1)
			})
		})
	})
}

func TestWeighted(t *testing.T) {
	Convey("Given a raw score and a component weight", t, func() {
		Convey("Then the weighted contribution is their product", func() {
			So(ledger.Weighted(1.0, 0.1), ShouldAlmostEqual, 0.1)
			So(ledger.Weighted(0.5, 0.2), ShouldAlmostEqual, 0.1)
			So(ledger.Weighted(0, 0.3), ShouldEqual, 0)
		})
	})
}

func TestFormatScorecard(t *testing.T) {
	Convey("Given a graded ledger and its course", t, func() {
		c := testCourse()

		Convey("When successive imports overwrite one component", func() {
			now := time.Now()
			var l ledger.Ledger
			expected := map[float64]string{
				0.1: "OVERALL SCORE: 10.00%",
				0.2: "OVERALL SCORE: 20.00%",
				0.3: "OVERALL SCORE: 30.00%",
			}

			for _, v := range []float64{0.1, 0.2, 0.3} {
				l = l.Append(map[string]float64{"hw1": v}, now)
				out, err := ledger.FormatScorecard(l.Scorecard(), c)

				Convey("Then the report overwrites rather than accumulates for "+expected[v], func() {
					So(err, ShouldBeNil)
					So(out, ShouldContainSubstring, expected[v])
				})
			}
		})

		Convey("When the scorecard spans several components", func() {
			sc := ledger.Scorecard{"hw2": 0.05, "hw1": 0.1}
			out, err := ledger.FormatScorecard(sc, c)

			Convey("Then components render in deterministic order with display names", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "SCORECARD FOR CSCE145")
				So(out, ShouldContainSubstring, "Homework 1")
				So(out, ShouldContainSubstring, "Homework 2")
				hw1 := indexOf(out, "Homework 1")
				hw2 := indexOf(out, "Homework 2")
				So(hw1, ShouldBeLessThan, hw2)
				So(out, ShouldContainSubstring, "OVERALL SCORE: 15.00%")
			})
		})

		Convey("When the scorecard references an unknown component", func() {
			_, err := ledger.FormatScorecard(ledger.Scorecard{"ghost": 0.2}, c)
			So(err, ShouldNotBeNil)
		})
	})
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
