package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/esmstat/pkg/buildinfo"
	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/integrations"
	"github.com/matzehuels/esmstat/pkg/report"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

// SnapshotResponse describes one snapshot.
type SnapshotResponse struct {
	Date   string                    `json:"date"`
	Total  int                       `json:"total"`
	Counts map[classify.Style]int    `json:"counts"`
	Styles map[string]classify.Style `json:"styles"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Current()})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rows, err := report.Aggregate(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(report.RenderSVG(rows))
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := report.Aggregate(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rows); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dates": dates})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := errs.ValidateSnapshotDate(date); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.store.Load(r.Context(), date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row := report.Count(snap)
	writeJSON(w, http.StatusOK, SnapshotResponse{
		Date:   snap.Date,
		Total:  row.Total,
		Counts: row.Counts,
		Styles: snap.Styles,
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil || s.classifier == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "classification is disabled", Code: string(errs.ErrCodeInternal)})
		return
	}
	name := strings.Trim(chi.URLParam(r, "*"), "/")
	refresh := r.URL.Query().Get("refresh") == "true"

	p, err := s.registry.FetchPackument(r.Context(), name, refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.classifier.Classify(p).Outcome(name))
}

// writeError maps err to a status code and writes an ErrorResponse.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: errs.UserMessage(err), Code: code})
}

func classifyError(err error) (int, string) {
	var coded *errs.Error
	switch {
	case errors.Is(err, snapshot.ErrNotFound), errors.Is(err, integrations.ErrNotFound):
		return http.StatusNotFound, string(errs.ErrCodeNotFound)
	case errors.As(err, &coded) && strings.HasPrefix(string(coded.Code), "INVALID_"):
		return http.StatusBadRequest, string(coded.Code)
	case errors.Is(err, integrations.ErrUnauthorized):
		return http.StatusBadGateway, string(errs.ErrCodeUnauthorized)
	case errors.Is(err, integrations.ErrNetwork):
		return http.StatusBadGateway, string(errs.ErrCodeNetwork)
	default:
		return http.StatusInternalServerError, string(errs.ErrCodeInternal)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
