// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/table"
	"github.com/okian/gradelens/pkg/logger"
)

const (
	defaultMaxUploadBytes = 4 << 20
	uploadField           = "file"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Stateless pipeline.
	Parse(ctx context.Context, r io.Reader) (*table.Table, error)
	AnalyzeTable(ctx context.Context, t *table.Table, q service.Query) (service.Analysis, error)

	// Stored tables.
	Upload(ctx context.Context, r io.Reader) (service.TableInfo, error)
	Table(ctx context.Context, id string) (service.TableInfo, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string, subjects []string, minAvg, maxAvg *float64) ([]byte, error)

	// Views over a stored table.
	Analyze(ctx context.Context, id string, q service.Query) (service.Analysis, error)
	Report(ctx context.Context, id string, q service.Query) (string, error)
	Describe(ctx context.Context, id string, subjects []string) ([]analysis.SubjectSummary, error)
	Distribution(ctx context.Context, id string, subjects []string) ([]analysis.GradeBucket, error)
	Correlation(ctx context.Context, id string, subjects []string) (analysis.Matrix, error)
	Radar(ctx context.Context, id string, q service.Query) ([]analysis.RadarPoint, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	tablesHandler   *TablesHandler
	analysisHandler *AnalysisHandler

	maxUploadBytes int64
	logger         logger.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMaxUploadBytes caps request bodies carrying CSV.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	body := bodyReader{limit: s.maxUploadBytes}
	failure := failureWriter{logger: s.logger}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.tablesHandler = &TablesHandler{deps: deps, body: body, fail: failure}
	s.analysisHandler = &AnalysisHandler{deps: deps, body: body, fail: failure}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /analyze", MetricsMiddleware(s.analysisHandler.HandleAnalyzeCSV, "analyze"))

	mux.HandleFunc("POST /tables", MetricsMiddleware(s.tablesHandler.HandleUpload, "tables_upload"))
	mux.HandleFunc("GET /tables/{id}", MetricsMiddleware(s.tablesHandler.HandleGet, "tables_get"))
	mux.HandleFunc("DELETE /tables/{id}", MetricsMiddleware(s.tablesHandler.HandleDelete, "tables_delete"))
	mux.HandleFunc("GET /tables/{id}/download", MetricsMiddleware(s.tablesHandler.HandleDownload, "download"))

	mux.HandleFunc("GET /tables/{id}/analysis", MetricsMiddleware(s.analysisHandler.HandleAnalysis, "analysis"))
	mux.HandleFunc("GET /tables/{id}/report", MetricsMiddleware(s.analysisHandler.HandleReport, "report"))
	mux.HandleFunc("GET /tables/{id}/describe", MetricsMiddleware(s.analysisHandler.HandleDescribe, "describe"))
	mux.HandleFunc("GET /tables/{id}/distribution", MetricsMiddleware(s.analysisHandler.HandleDistribution, "distribution"))
	mux.HandleFunc("GET /tables/{id}/correlation", MetricsMiddleware(s.analysisHandler.HandleCorrelation, "correlation"))
	mux.HandleFunc("GET /tables/{id}/radar", MetricsMiddleware(s.analysisHandler.HandleRadar, "radar"))

	s.logger.Debug(ctx, "api routes registered", logger.Int64("maxUploadBytes", s.maxUploadBytes))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing the status, so a value json cannot
// represent (NaN, Inf) becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Code: "internal_error", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// failureWriter classifies handler errors and logs the ones that are ours.
type failureWriter struct {
	logger logger.Logger
}

func (f failureWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		f.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// bodyReader reads a size-capped CSV payload from a raw body or from the
// multipart field "file".
type bodyReader struct {
	limit int64
}

func (b bodyReader) read(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	const op = "api.read_body"
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind(op, ErrTooLarge, fmt.Errorf("limit is %d bytes", tooLarge.Limit))
		}
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return raw, nil
	}
	return filePart(op, raw, params["boundary"])
}

func filePart(op string, raw []byte, boundary string) ([]byte, error) {
	if boundary == "" {
		return nil, WrapKind(op, ErrBadRequest, errors.New("multipart body without boundary"))
	}
	mr := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, WrapKind(op, ErrBadRequest, fmt.Errorf("missing multipart field %q", uploadField))
		}
		if err != nil {
			return nil, WrapKind(op, ErrBadRequest, err)
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, WrapKind(op, ErrBadRequest, err)
		}
		return data, nil
	}
}

// parseSubjects splits the comma-separated subjects parameter. Missing or
// blank yields nil, which selects every subject column.
func parseSubjects(r *http.Request) []string {
	raw := r.URL.Query().Get("subjects")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseQuery(r *http.Request) service.Query {
	return service.Query{
		Subjects: parseSubjects(r),
		Student:  strings.TrimSpace(r.URL.Query().Get("student")),
	}
}

// parseBound reads an optional float query parameter.
func parseBound(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrBadRequest, name)
	}
	return &v, nil
}
