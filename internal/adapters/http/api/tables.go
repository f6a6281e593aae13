package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/gradelens/internal/domain/table"
	"github.com/okian/gradelens/pkg/metrics"
)

// TablesHandler serves uploads and stored table lifecycle.
type TablesHandler struct {
	deps Dependencies
	body bodyReader
	fail failureWriter
}

// HandleUpload handles POST /tables requests.
func (h *TablesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload"
	raw, err := h.body.read(w, r)
	if err != nil {
		metrics.RecordUpload("rejected")
		h.fail.write(w, r, err)
		return
	}
	metrics.RecordUploadSize(int64(len(raw)))
	info, err := h.deps.Upload(r.Context(), bytes.NewReader(raw))
	if err != nil {
		h.fail.write(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/tables/"+info.ID)
	writeJSON(w, http.StatusCreated, info)
}

// HandleGet handles GET /tables/{id} requests.
func (h *TablesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.Table(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail.write(w, r, Wrap("api.table", err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleDelete handles DELETE /tables/{id} requests.
func (h *TablesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail.write(w, r, Wrap("api.delete", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDownload handles GET /tables/{id}/download requests. The response is
// the filtered table as a CSV attachment.
func (h *TablesHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	const op = "api.download"
	minAvg, err := parseBound(r, "min_average")
	if err != nil {
		h.fail.write(w, r, Wrap(op, err))
		return
	}
	maxAvg, err := parseBound(r, "max_average")
	if err != nil {
		h.fail.write(w, r, Wrap(op, err))
		return
	}
	data, err := h.deps.Download(r.Context(), r.PathValue("id"), parseSubjects(r), minAvg, maxAvg)
	if err != nil {
		h.fail.write(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", table.DownloadMIME+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table.DownloadFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
