package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/gradelens/internal/adapters/http/api"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/table"
	"github.com/okian/gradelens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const classCSV = "id,name,math,eng,club\n" +
	"s1,Alice,95,85,chess\n" +
	"s2,Bob,60,65,art\n" +
	"s3,Chloe,78,88,chess\n"

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// failingDeps embeds a real service and overrides one call to fail.
type failingDeps struct {
	*service.Service
}

func (failingDeps) Describe(context.Context, string, []string) ([]analysis.SubjectSummary, error) {
	return nil, errors.New("disk on fire")
}

// nanDeps returns a matrix json cannot encode.
type nanDeps struct {
	*service.Service
}

func (nanDeps) Correlation(context.Context, string, []string) (analysis.Matrix, error) {
	return analysis.Matrix{Subjects: []string{"math"}, Values: [][]float64{{math.NaN()}}}, nil
}

func newMux(t *testing.T, opts ...api.Option) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithIDGenerator(func() string { return "tbl" }),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return mux, svc
}

func do(mux http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(rec *httptest.ResponseRecorder) errorBody {
	var e errorBody
	_ = json.NewDecoder(rec.Body).Decode(&e)
	return e
}

func TestTablesHandler(t *testing.T) {
	Convey("Given an API server over a started service", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()

		Convey("When a CSV is uploaded as the raw body", func() {
			rec := do(mux, http.MethodPost, "/tables", strings.NewReader(classCSV), "text/csv")

			Convey("Then the table info is returned with a location", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(rec.Header().Get("Location"), ShouldEqual, "/tables/tbl")
				var info service.TableInfo
				So(json.NewDecoder(rec.Body).Decode(&info), ShouldBeNil)
				So(info.ID, ShouldEqual, "tbl")
				So(info.Rows, ShouldEqual, 3)
				So(info.Subjects, ShouldResemble, []string{"math", "eng"})
			})

			Convey("Then the table can be read back and deleted", func() {
				get := do(mux, http.MethodGet, "/tables/tbl", nil, "")
				So(get.Code, ShouldEqual, http.StatusOK)

				del := do(mux, http.MethodDelete, "/tables/tbl", nil, "")
				So(del.Code, ShouldEqual, http.StatusNoContent)

				gone := do(mux, http.MethodGet, "/tables/tbl", nil, "")
				So(gone.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(gone).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When a CSV is uploaded as a multipart file", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			So(mw.WriteField("note", "ignored"), ShouldBeNil)
			fw, err := mw.CreateFormFile("file", "scores.csv")
			So(err, ShouldBeNil)
			_, err = fw.Write([]byte(classCSV))
			So(err, ShouldBeNil)
			So(mw.Close(), ShouldBeNil)

			rec := do(mux, http.MethodPost, "/tables", &buf, mw.FormDataContentType())

			Convey("Then the file field is parsed", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When a multipart body has no file field", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			So(mw.WriteField("note", "only"), ShouldBeNil)
			So(mw.Close(), ShouldBeNil)

			rec := do(mux, http.MethodPost, "/tables", &buf, mw.FormDataContentType())
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Code, ShouldEqual, "validation_error")
		})

		Convey("When the body is empty", func() {
			rec := do(mux, http.MethodPost, "/tables", strings.NewReader(""), "text/csv")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Code, ShouldEqual, "bad_csv")
		})

		Convey("When the CSV has a header only", func() {
			rec := do(mux, http.MethodPost, "/tables", strings.NewReader("name,math\n"), "text/csv")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Code, ShouldEqual, "validation_error")
		})

		Convey("When downloading a filtered table", func() {
			So(do(mux, http.MethodPost, "/tables", strings.NewReader(classCSV), "").Code, ShouldEqual, http.StatusCreated)
			rec := do(mux, http.MethodGet, "/tables/tbl/download?subjects=math,eng&min_average=80&max_average=90", nil, "")

			Convey("Then the CSV is sent as an attachment", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, table.DownloadMIME)
				So(rec.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename="filtered_scores.csv"`)
				So(rec.Body.String(), ShouldEqual, "id,name,math,eng\ns1,Alice,95,85\ns3,Chloe,78,88\n")
			})
		})

		Convey("When a download bound is not a number", func() {
			So(do(mux, http.MethodPost, "/tables", strings.NewReader(classCSV), "").Code, ShouldEqual, http.StatusCreated)
			rec := do(mux, http.MethodGet, "/tables/tbl/download?min_average=high", nil, "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Code, ShouldEqual, "validation_error")
		})

		Convey("When the method does not match a route", func() {
			rec := do(mux, http.MethodPut, "/tables/tbl", nil, "")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestUploadLimit(t *testing.T) {
	Convey("Given a server capped at 32 bytes per upload", t, func() {
		mux, svc := newMux(t, api.WithMaxUploadBytes(32))
		defer svc.Stop()

		Convey("When a larger CSV is posted", func() {
			rec := do(mux, http.MethodPost, "/tables", strings.NewReader(classCSV), "text/csv")

			Convey("Then it is rejected as too large", func() {
				So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(rec).Code, ShouldEqual, "too_large")
			})
		})
	})
}

func TestAnalysisHandler(t *testing.T) {
	Convey("Given a stored table", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()
		So(do(mux, http.MethodPost, "/tables", strings.NewReader(classCSV), "").Code, ShouldEqual, http.StatusCreated)

		Convey("When analyzing a known student", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/analysis?student=Bob", nil, "")

			Convey("Then the individual profile is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				var a service.Analysis
				So(json.NewDecoder(rec.Body).Decode(&a), ShouldBeNil)
				So(a.TableID, ShouldEqual, "tbl")
				So(a.Result.Kind, ShouldEqual, analysis.KindIndividual)
				So(a.Result.Individual.Name, ShouldEqual, "Bob")
				So(a.Insights, ShouldHaveLength, 2)
			})
		})

		Convey("When the student is unknown", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/analysis?student=Zed&subjects=eng", nil, "")
			var a service.Analysis
			So(json.NewDecoder(rec.Body).Decode(&a), ShouldBeNil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(a.Result.Kind, ShouldEqual, analysis.KindClass)
			So(a.Subjects, ShouldResemble, []string{"eng"})
		})

		Convey("When a text column is selected", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/analysis?subjects=math,club", nil, "")
			So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(rec).Code, ShouldEqual, "non_numeric")
		})

		Convey("When a missing column is selected", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/analysis?subjects=art", nil, "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Code, ShouldEqual, "validation_error")
		})

		Convey("When the report is requested", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/report?student=Alice", nil, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldStartWith, "text/markdown")
			So(rec.Body.String(), ShouldStartWith, "# Grade report: Alice")
		})

		Convey("When chart data is requested", func() {
			describe := do(mux, http.MethodGet, "/tables/tbl/describe", nil, "")
			So(describe.Code, ShouldEqual, http.StatusOK)
			var sums []analysis.SubjectSummary
			So(json.NewDecoder(describe.Body).Decode(&sums), ShouldBeNil)
			So(sums, ShouldHaveLength, 2)

			dist := do(mux, http.MethodGet, "/tables/tbl/distribution?subjects=math", nil, "")
			So(dist.Code, ShouldEqual, http.StatusOK)

			corr := do(mux, http.MethodGet, "/tables/tbl/correlation", nil, "")
			var m analysis.Matrix
			So(json.NewDecoder(corr.Body).Decode(&m), ShouldBeNil)
			So(m.Subjects, ShouldResemble, []string{"math", "eng"})
			v, ok := m.At("math", "math")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1)
		})

		Convey("When the radar target is unknown", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/radar?student=Zed", nil, "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(rec).Code, ShouldEqual, "not_found")
		})

		Convey("When the radar target exists", func() {
			rec := do(mux, http.MethodGet, "/tables/tbl/radar?student=Chloe", nil, "")
			var pts []analysis.RadarPoint
			So(json.NewDecoder(rec.Body).Decode(&pts), ShouldBeNil)
			So(pts, ShouldHaveLength, 2)
			So(pts[0].Score, ShouldEqual, 78)
		})
	})
}

func TestStatelessAnalyze(t *testing.T) {
	Convey("Given a server", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()

		Convey("When the worked example is posted", func() {
			rec := do(mux, http.MethodPost, "/analyze?student=A", strings.NewReader("name,math,eng\nA,95,85\nB,60,65\n"), "text/csv")

			Convey("Then the analysis is returned without storing the table", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var a service.Analysis
				So(json.NewDecoder(rec.Body).Decode(&a), ShouldBeNil)
				So(a.TableID, ShouldBeEmpty)
				So(a.Result.Individual.OwnAverage, ShouldEqual, 90)
				So(a.Result.Individual.ClassAverage, ShouldEqual, 76.25)
				So(a.Recommendations, ShouldHaveLength, 1)
				So(svc.GetStats()["tables"], ShouldEqual, 0)
			})
		})

		Convey("When the scores overflow the aggregates", func() {
			rec := do(mux, http.MethodPost, "/analyze", strings.NewReader("name,math,eng\nA,1e308,1e308\nB,1e308,1e308\n"), "text/csv")

			Convey("Then the request is rejected with a body", func() {
				So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(rec).Code, ShouldEqual, "non_finite")
			})
		})

		Convey("When the CSV has ragged rows", func() {
			rec := do(mux, http.MethodPost, "/analyze", strings.NewReader("name,math\nA,1,2\n"), "text/csv")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(rec).Code, ShouldEqual, "bad_csv")
		})
	})
}

func TestServerFailures(t *testing.T) {
	Convey("Given dependencies that fail unexpectedly", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(failingDeps{svc}, svc).Register(context.Background(), mux)

		Convey("Then the error surfaces as a 500", func() {
			rec := do(mux, http.MethodGet, "/tables/x/describe", nil, "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(rec).Code, ShouldEqual, "internal_error")
		})
	})

	Convey("Given dependencies returning a value json cannot encode", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(nanDeps{svc}, svc).Register(context.Background(), mux)

		Convey("Then the client gets a 500 with an error body, not an empty 200", func() {
			rec := do(mux, http.MethodGet, "/tables/x/correlation", nil, "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(rec.Body.Len(), ShouldBeGreaterThan, 0)
			So(decodeError(rec).Code, ShouldEqual, "internal_error")
		})
	})

	Convey("Given a server over a stopped service", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)

		Convey("Then stored-table routes are unavailable", func() {
			rec := do(mux, http.MethodGet, "/tables/x", nil, "")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeError(rec).Code, ShouldEqual, "unavailable")
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a server", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()

		Convey("When probing liveness", func() {
			rec := do(mux, http.MethodGet, "/healthz", nil, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("When scraping metrics after a request", func() {
			do(mux, http.MethodGet, "/healthz", nil, "")
			rec := do(mux, http.MethodGet, "/metrics", nil, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "gradelens_")
		})

		Convey("When reading stats", func() {
			rec := do(mux, http.MethodGet, "/stats", nil, "")
			var stats map[string]any
			So(json.NewDecoder(rec.Body).Decode(&stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["tables"], ShouldEqual, float64(0))
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given CORS for one origin", t, func() {
		h := api.CORS([]string{"https://grades.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		Convey("When an allowed origin calls", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", "https://grades.example.com")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://grades.example.com")
		})

		Convey("When another origin calls", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", "https://elsewhere.example.com")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
		})
	})

	Convey("Given no origins", t, func() {
		inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
		rec := httptest.NewRecorder()
		api.CORS(nil)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		So(rec.Code, ShouldEqual, http.StatusTeapot)
	})
}

func TestKindErrors(t *testing.T) {
	Convey("Given a wrapped kind error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both kind and cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then nil causes stay nil", func() {
			So(api.WrapKind("x", api.ErrBadRequest, nil), ShouldBeNil)
			So(api.Wrap("x", nil), ShouldBeNil)
			So(api.NewKind("x", api.ErrTooLarge).Error(), ShouldEqual, "x: request body too large")
		})
	})
}
