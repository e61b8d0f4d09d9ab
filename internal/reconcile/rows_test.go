package reconcile_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pretor/internal/reconcile"
)

func TestReadRows(t *testing.T) {
	Convey("Given a CSV grade export", t, func() {
		Convey("When the header carries extra columns in arbitrary order", func() {
			in := strings.NewReader(
				"student_name,override,assignment,section,course,group,semester\n" +
					"John Smith,0.1,hw1,001,CSCE145,jsmith,F2026\n" +
					"Ada Byron,0.25,hw2,002,CSCE145,abyron,F2026\n")
			rows, err := reconcile.ReadRows(in)

			Convey("Then rows map columns by name, not position", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(rows[0].Key.Group, ShouldEqual, "jsmith")
				So(rows[0].Component, ShouldEqual, "hw1")
				So(rows[0].Contribution, ShouldEqual, 0.1)
				So(rows[1].Line, ShouldEqual, 3)
			})
		})

		Convey("When the input is tab-separated", func() {
			in := strings.NewReader(
				"semester\tassignment\tsection\tcourse\tgroup\toverride\n" +
					"F2026\thw1\t001\tCSCE145\tjsmith\t0.3\n")
			rows, err := reconcile.ReadRows(in, reconcile.WithTab())

			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Contribution, ShouldEqual, 0.3)
		})

		Convey("When a required column is missing", func() {
			in := strings.NewReader("semester,assignment,section,course,group\nF2026,hw1,001,CSCE145,jsmith\n")
			_, err := reconcile.ReadRows(in)

			Convey("Then the batch is a configuration defect", func() {
				So(errors.Is(err, reconcile.ErrConfiguration), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "override")
			})
		})

		Convey("When an override is not numeric", func() {
			in := strings.NewReader(
				"semester,assignment,section,course,group,override\n" +
					"F2026,hw1,001,CSCE145,jsmith,excellent\n")
			_, err := reconcile.ReadRows(in)

			So(errors.Is(err, reconcile.ErrConfiguration), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "line 2")
		})
	})
}
