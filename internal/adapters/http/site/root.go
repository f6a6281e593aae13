// Package site serves the landing page and the sample score table.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants.
var (
	ErrServe = errors.New("site serve failed")
)

// SampleFile is the downloadable demo table.
const SampleFile = "sample.csv"

// Register attaches the landing page and the sample download to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	h := NewRootHandler()
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /"+SampleFile, h.HandleSample)
}

// RootHandler serves the embedded site files.
type RootHandler struct {
	files http.FileSystem
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: FS()}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "index.html", "text/html; charset=utf-8")
}

// HandleSample handles GET /sample.csv as an attachment.
func (h *RootHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="`+SampleFile+`"`)
	h.serve(w, r, SampleFile, "text/csv; charset=utf-8")
}

func (h *RootHandler) serve(w http.ResponseWriter, r *http.Request, name, contentType string) {
	f, err := h.files.Open(name)
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, stat.ModTime(), f)
}
