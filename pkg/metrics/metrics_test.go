package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then defaults are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.analysesTotal.WithLabelValues("class").Inc()

			Convey("Then names and labels reflect the options", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_pre_analyses_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When ignoring empty option values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			So(manager.namespace, ShouldEqual, "gradelens")
			So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording analyses", func() {
			before := testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("individual"))
			RecordAnalysis("individual", 1.5)
			RecordAnalysis("individual", 2.5)
			RecordRecommendations("individual", 2)
			RecordInsights(2)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("individual")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.recommendationBlocks.WithLabelValues("individual")), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When recording store and upload metrics", func() {
			UpdateStoreTables(7)
			RecordStoreEviction("capacity")
			RecordUpload("ok")

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.storeTables), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.storeEvictions.WithLabelValues("capacity")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.uploadsTotal.WithLabelValues("ok")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordAnalysisError("validation")
				RecordReportRendered()
				RecordUploadSize(2048)
				RecordTableRows(30)
				RecordStoreLatency("get", 0.2)
				RecordHTTPRequest("/analyze", "POST", "200")
				RecordHTTPRequestDuration("/analyze", "POST", "200", 3.2)
				RecordErrorByComponent("api", "validation_error")
				RecordErrorByType("validation_error", "low")
				RecordErrorByEndpoint("/analyze", "POST", "validation_error")
				RecordErrorLatency("api", "validation_error", 1.1)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("When gathering the registry", func() {
			RecordHTTPRequest("/healthz", "GET", "200")
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then every family carries the service namespace", func() {
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "gradelens_analysis_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a reconfigured global manager", t, func() {
		defer Configure()
		old := GetRegistry()
		Configure(
			WithNamespace("school"),
			WithSubsystem("grades"),
			WithCustomLabels(map[string]string{"env": "staging"}),
			WithHistogramBuckets([]float64{1, 10}),
			WithRefreshInterval(3*time.Second),
		)
		RecordAnalysis("class", 4)

		Convey("Then recorders write to the new registry under the new names", func() {
			So(GetRegistry(), ShouldNotPointTo, old)
			So(RefreshInterval(), ShouldEqual, 3*time.Second)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var found bool
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "school_grades_"), ShouldBeTrue)
				if f.GetName() == "school_grades_analyses_total" {
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "staging")
				}
			}
			So(found, ShouldBeTrue)
		})
	})

	Convey("Given recording switched off", t, func() {
		defer Configure()
		Configure(WithMetricsEnabled(false))
		RecordAnalysis("class", 4)

		Convey("Then nothing is counted", func() {
			So(testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("class")), ShouldEqual, 0)
		})
	})
}
