package course_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/pretor/internal/course"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCourse = `
[course]
name = "CSCE145"
description = "Intro programming"

[hw1]
name = "Homework 1"
weight = 0.1

[final]
name = "Final Exam"
weight = 0.5
description = "Cumulative"
`

func TestParse(t *testing.T) {
	Convey("Given a well-formed course definition", t, func() {
		Convey("When it is parsed", func() {
			c, err := course.Parse([]byte(sampleCourse))

			Convey("Then all components come back with their weights", func() {
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "CSCE145")
				So(c.Description, ShouldEqual, "Intro programming")
				So(len(c.Components), ShouldEqual, 2)

				hw, ok := c.Component("hw1")
				So(ok, ShouldBeTrue)
				So(hw.Name, ShouldEqual, "Homework 1")
				So(hw.Weight, ShouldEqual, 0.1)

				fin, ok := c.Component("final")
				So(ok, ShouldBeTrue)
				So(fin.Weight, ShouldEqual, 0.5)
				So(fin.Description, ShouldEqual, "Cumulative")
			})

			Convey("And unknown component keys miss", func() {
				_, ok := c.Component("hw9")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestParseMalformed(t *testing.T) {
	Convey("Given defective course definitions", t, func() {
		cases := map[string]string{
			"missing [course] table": `
[hw1]
name = "Homework 1"
weight = 0.1
`,
			"course with no name": `
[course]
description = "nameless"

[hw1]
name = "Homework 1"
weight = 0.1
`,
			"no components": `
[course]
name = "CSCE145"
`,
			"component missing weight": `
[course]
name = "CSCE145"

[hw1]
name = "Homework 1"
`,
			"weight out of range": `
[course]
name = "CSCE145"

[hw1]
name = "Homework 1"
weight = 1.5
`,
			"not even TOML": `{"name": "nope"}`,
		}

		for label, body := range cases {
			Convey("When parsing a definition with "+label, func() {
				_, err := course.Parse([]byte(body))

				Convey("Then it is rejected as malformed", func() {
					So(err, ShouldNotBeNil)
					So(errors.Is(err, course.ErrMalformed), ShouldBeTrue)
				})
			})
		}
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a course file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "csce145.toml")
		So(os.WriteFile(path, []byte(sampleCourse), 0o600), ShouldBeNil)

		Convey("When it is loaded by path", func() {
			c, err := course.Load(path)
			So(err, ShouldBeNil)
			So(c.Name, ShouldEqual, "CSCE145")
		})

		Convey("When a missing path is loaded", func() {
			_, err := course.Load(filepath.Join(dir, "nope.toml"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not found")
		})
	})
}

func TestLoadPath(t *testing.T) {
	Convey("Given a directory of course files", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "a.toml"), []byte(sampleCourse), 0o600), ShouldBeNil)

		other := `
[course]
name = "MATH241"

[quiz1]
name = "Quiz 1"
weight = 0.2
`
		sub := filepath.Join(dir, "nested")
		So(os.MkdirAll(sub, 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(sub, "b.toml"), []byte(other), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "junk.toml"), []byte("not = toml ["), 0o600), ShouldBeNil)

		Convey("When the search path is loaded", func() {
			courses, soft := course.LoadPath(dir)

			Convey("Then both valid courses load, keyed by name", func() {
				So(len(courses), ShouldEqual, 2)
				So(courses["CSCE145"], ShouldNotBeNil)
				So(courses["MATH241"], ShouldNotBeNil)
			})

			Convey("And the defective file is reported softly", func() {
				So(len(soft), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}
