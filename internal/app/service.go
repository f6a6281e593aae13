// Package service wires the grade analysis core to table storage and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/insight"
	"github.com/okian/gradelens/internal/domain/recommend"
	"github.com/okian/gradelens/internal/domain/report"
	"github.com/okian/gradelens/internal/domain/table"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMaxRows   = 10_000
	defaultMaxTables = 256
	defaultStoreTTL  = time.Hour
)

// Query selects the subjects and, optionally, the student to analyze.
// Empty Subjects means every numeric subject of the table.
type Query struct {
	Subjects []string
	Student  string
}

// Analysis is the full outcome of one request: the profile, its narration
// and the recommendation blocks.
type Analysis struct {
	TableID         string            `json:"table_id,omitempty"`
	Subjects        []string          `json:"subjects"`
	Result          analysis.Result   `json:"result"`
	Insights        []string          `json:"insights"`
	Recommendations []recommend.Block `json:"recommendations"`
}

// TableInfo describes a stored table.
type TableInfo struct {
	ID       string   `json:"id"`
	Columns  []string `json:"columns"`
	Subjects []string `json:"subjects"`
	Rows     int      `json:"rows"`
}

// Service implements the API dependencies for grade analysis.
type Service struct {
	mu sync.RWMutex

	store repository.Store

	// Configuration
	maxRows   int
	maxTables int
	storeTTL  time.Duration
	newID     func() string

	// State
	started  bool
	uploads  atomic.Int64
	analyses atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the table store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithMaxRows caps rows per uploaded table; 0 disables the cap.
func WithMaxRows(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRows = n
		}
	}
}

// WithStoreLimits bounds the default in-memory store. Ignored when WithStore is used.
func WithStoreLimits(maxTables int, ttl time.Duration) Option {
	return func(s *Service) {
		if maxTables >= 0 {
			s.maxTables = maxTables
		}
		if ttl >= 0 {
			s.storeTTL = ttl
		}
	}
}

// WithIDGenerator replaces the table id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxRows:   defaultMaxRows,
		maxTables: defaultMaxTables,
		storeTTL:  defaultStoreTTL,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the store. Starting twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(
			repository.WithMaxTables(s.maxTables),
			repository.WithTTL(s.storeTTL),
		)
		s.logger.Info(ctx, "using in-memory table store",
			logger.Int("maxTables", s.maxTables),
			logger.Duration("ttl", s.storeTTL),
		)
	}
	s.started = true
	s.logger.Info(ctx, "grade analysis service started", logger.Int("maxRows", s.maxRows))
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && !errors.Is(err, repository.ErrClosed) {
			s.logger.Warn(context.Background(), "closing table store", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "grade analysis service stopped")
}

func (s *Service) ready() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Parse reads a CSV table honoring the row cap.
func (s *Service) Parse(ctx context.Context, r io.Reader) (*table.Table, error) {
	t, err := table.ParseCSV(r, table.WithMaxRows(s.maxRows))
	if err != nil {
		metrics.RecordUpload(errorReason(err))
		return nil, err
	}
	metrics.RecordTableRows(t.Len())
	return t, nil
}

// Upload parses and stores a table under a fresh id.
func (s *Service) Upload(ctx context.Context, r io.Reader) (TableInfo, error) {
	store, err := s.ready()
	if err != nil {
		return TableInfo{}, err
	}
	t, err := s.Parse(ctx, r)
	if err != nil {
		return TableInfo{}, err
	}
	if t.Len() == 0 {
		metrics.RecordUpload("empty")
		return TableInfo{}, table.ErrEmptyTable
	}
	id := s.newID()
	if err := store.Save(ctx, id, t); err != nil {
		metrics.RecordUpload("store_error")
		return TableInfo{}, fmt.Errorf("save table: %w", err)
	}
	s.uploads.Add(1)
	metrics.RecordUpload("ok")
	s.logger.Info(ctx, "table stored",
		logger.String("tableID", id),
		logger.Int("rows", t.Len()),
		logger.Strings("subjects", t.Subjects()),
	)
	return info(id, t), nil
}

// Table describes the stored table.
func (s *Service) Table(ctx context.Context, id string) (TableInfo, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return TableInfo{}, err
	}
	return info(id, t), nil
}

// Delete drops the stored table.
func (s *Service) Delete(ctx context.Context, id string) error {
	store, err := s.ready()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "table deleted", logger.String("tableID", id))
	return nil
}

// Analyze runs the full pipeline against a stored table.
func (s *Service) Analyze(ctx context.Context, id string, q Query) (Analysis, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	a, err := s.AnalyzeTable(ctx, t, q)
	if err != nil {
		return Analysis{}, err
	}
	a.TableID = id
	return a, nil
}

// AnalyzeTable runs the full pipeline against an in-hand table.
func (s *Service) AnalyzeTable(ctx context.Context, t *table.Table, q Query) (Analysis, error) {
	start := time.Now()
	subjects := resolveSubjects(t, q.Subjects)

	res, err := analysis.Analyze(t, subjects, q.Student)
	if err != nil {
		metrics.RecordAnalysisError(errorReason(err))
		s.log().Debug(ctx, "analysis rejected", logger.Strings("subjects", subjects), logger.Error(err))
		return Analysis{}, err
	}
	if q.Student != "" && res.Kind == analysis.KindClass {
		s.log().Debug(ctx, "student not found, returning class overview", logger.String("student", q.Student))
	}

	out := Analysis{
		Subjects:        subjects,
		Result:          res,
		Insights:        insight.Narrate(res),
		Recommendations: recommend.Recommend(res),
	}
	s.analyses.Add(1)
	metrics.RecordAnalysis(string(res.Kind), float64(time.Since(start).Microseconds())/1000)
	metrics.RecordInsights(len(out.Insights))
	metrics.RecordRecommendations(string(res.Kind), len(out.Recommendations))
	return out, nil
}

// Report renders the markdown report for a stored table.
func (s *Service) Report(ctx context.Context, id string, q Query) (string, error) {
	a, err := s.Analyze(ctx, id, q)
	if err != nil {
		return "", err
	}
	metrics.RecordReportRendered()
	return report.Markdown(a.Result, a.Insights, a.Recommendations), nil
}

// Describe returns per-subject summaries.
func (s *Service) Describe(ctx context.Context, id string, subjects []string) ([]analysis.SubjectSummary, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return analysis.Describe(t, resolveSubjects(t, subjects))
}

// Distribution returns letter grade counts per subject.
func (s *Service) Distribution(ctx context.Context, id string, subjects []string) ([]analysis.GradeBucket, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return analysis.Distribution(t, resolveSubjects(t, subjects))
}

// Correlation returns the subject correlation matrix.
func (s *Service) Correlation(ctx context.Context, id string, subjects []string) (analysis.Matrix, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return analysis.Matrix{}, err
	}
	return analysis.Correlation(t, resolveSubjects(t, subjects))
}

// Radar returns the student's scores against subject means.
func (s *Service) Radar(ctx context.Context, id string, q Query) ([]analysis.RadarPoint, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return analysis.Radar(t, resolveSubjects(t, q.Subjects), q.Student)
}

// Download returns the table restricted to subjects, keeping the students
// whose average lies in [minAvg, maxAvg], as CSV. Nil bounds are open.
func (s *Service) Download(ctx context.Context, id string, subjects []string, minAvg, maxAvg *float64) ([]byte, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	subjects = resolveSubjects(t, subjects)
	lo, hi := math.Inf(-1), math.Inf(1)
	if minAvg != nil {
		lo = *minAvg
	}
	if maxAvg != nil {
		hi = *maxAvg
	}
	if lo > hi {
		return nil, fmt.Errorf("%w: min_average %g is above max_average %g", table.ErrValidation, lo, hi)
	}
	if _, err := t.Matrix(subjects); err != nil {
		return nil, err
	}
	selected, err := t.Select(subjects)
	if err != nil {
		return nil, err
	}
	return selected.Filter(table.AverageBetween(subjects, lo, hi)).EncodeCSV()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":  s.started,
		"maxRows":  s.maxRows,
		"uploads":  s.uploads.Load(),
		"analyses": s.analyses.Load(),
	}
	if s.started {
		tables := s.store.Count(context.Background())
		stats["tables"] = tables
		metrics.UpdateStoreTables(tables)
	}
	return stats
}

func (s *Service) load(ctx context.Context, id string) (*table.Table, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, id)
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}

func resolveSubjects(t *table.Table, subjects []string) []string {
	if len(subjects) > 0 || t == nil {
		return subjects
	}
	return t.Subjects()
}

func info(id string, t *table.Table) TableInfo {
	return TableInfo{ID: id, Columns: t.Columns(), Subjects: t.Subjects(), Rows: t.Len()}
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, table.ErrValidation):
		return "validation"
	case errors.Is(err, table.ErrNonNumeric):
		return "non_numeric"
	case errors.Is(err, table.ErrMalformedCSV):
		return "bad_csv"
	default:
		return "internal"
	}
}
