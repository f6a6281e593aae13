package api

import (
	"bytes"
	"net/http"

	"github.com/okian/gradelens/internal/domain/report"
)

// AnalysisHandler serves the analysis views.
type AnalysisHandler struct {
	deps Dependencies
	body bodyReader
	fail failureWriter
}

// HandleAnalyzeCSV handles POST /analyze: the CSV body is analyzed and
// discarded.
func (h *AnalysisHandler) HandleAnalyzeCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_csv"
	raw, err := h.body.read(w, r)
	if err != nil {
		h.fail.write(w, r, err)
		return
	}
	t, err := h.deps.Parse(r.Context(), bytes.NewReader(raw))
	if err != nil {
		h.fail.write(w, r, Wrap(op, err))
		return
	}
	out, err := h.deps.AnalyzeTable(r.Context(), t, parseQuery(r))
	if err != nil {
		h.fail.write(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAnalysis handles GET /tables/{id}/analysis requests.
func (h *AnalysisHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Analyze(r.Context(), r.PathValue("id"), parseQuery(r))
	if err != nil {
		h.fail.write(w, r, Wrap("api.analysis", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleReport handles GET /tables/{id}/report requests.
func (h *AnalysisHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	md, err := h.deps.Report(r.Context(), r.PathValue("id"), parseQuery(r))
	if err != nil {
		h.fail.write(w, r, Wrap("api.report", err))
		return
	}
	w.Header().Set("Content-Type", report.MIME)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// HandleDescribe handles GET /tables/{id}/describe requests.
func (h *AnalysisHandler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Describe(r.Context(), r.PathValue("id"), parseSubjects(r))
	if err != nil {
		h.fail.write(w, r, Wrap("api.describe", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDistribution handles GET /tables/{id}/distribution requests.
func (h *AnalysisHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Distribution(r.Context(), r.PathValue("id"), parseSubjects(r))
	if err != nil {
		h.fail.write(w, r, Wrap("api.distribution", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCorrelation handles GET /tables/{id}/correlation requests.
func (h *AnalysisHandler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Correlation(r.Context(), r.PathValue("id"), parseSubjects(r))
	if err != nil {
		h.fail.write(w, r, Wrap("api.correlation", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRadar handles GET /tables/{id}/radar requests. Unlike analysis, an
// unknown student is a 404.
func (h *AnalysisHandler) HandleRadar(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Radar(r.Context(), r.PathValue("id"), parseQuery(r))
	if err != nil {
		h.fail.write(w, r, Wrap("api.radar", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
