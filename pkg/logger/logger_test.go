package logger_test

import (
	"context"
	"testing"

	"github.com/okian/pretor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given an uninitialized logging package", t, func() {
		Convey("When Init is called", func() {
			err := logger.Init()

			Convey("Then the global logger is usable", func() {
				So(err, ShouldBeNil)
				So(func() { logger.Get() }, ShouldNotPanic)
				So(func() {
					logger.Get().Info(context.Background(), "hello", logger.String("k", "v"))
				}, ShouldNotPanic)
			})

			Convey("And Named returns a scoped logger", func() {
				l := logger.Named("reconcile")
				So(l, ShouldNotBeNil)
				So(func() { l.Debug(context.Background(), "scoped") }, ShouldNotPanic)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("When valid levels are applied", func() {
			for _, lvl := range []string{"debug", "info", "WARN", "warning", "error", ""} {
				So(logger.SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("When an unknown level is applied", func() {
			err := logger.SetLevelString("loud")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown log level")
		})
	})
}
