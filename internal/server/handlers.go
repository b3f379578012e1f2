package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/queue"
	"github.com/Heidric/queueing/internal/report"
)

type sweepResponse struct {
	Metric string             `json:"metric"`
	Model  model.ModelKind    `json:"model"`
	Points []model.SweepPoint `json:"points"`
}

// writeServiceError maps service errors onto statuses: model errors are 422,
// rejected input 400, unknown records 404 and everything else 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var merr *queue.ModelError
	switch {
	case errors.As(err, &merr):
		customerrors.WriteError(w, http.StatusUnprocessableEntity, merr.Message)
	case errors.Is(err, customerrors.ErrInvalidValue):
		customerrors.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, customerrors.ErrKeyNotFound):
		customerrors.WriteError(w, http.StatusNotFound, "")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		customerrors.WriteError(w, http.StatusInternalServerError, "")
	}
}

// writeJSON marshals before writing so an overflowed result becomes a 422
// instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		customerrors.WriteError(w, http.StatusUnprocessableEntity, customerrors.ErrNotFinite.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeBuffer(w http.ResponseWriter, contentType string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.Wrap(customerrors.ErrInvalidValue, "id must be a positive integer")
	}
	return id, nil
}

func (s *Server) evaluatePathHandler(w http.ResponseWriter, r *http.Request) {
	req := &model.EvaluationRequest{Model: model.ModelMM1}

	var err error
	if req.Lambda, err = strconv.ParseFloat(chi.URLParam(r, "lambda"), 64); err != nil {
		customerrors.WriteError(w, http.StatusBadRequest, "Invalid lambda")
		return
	}
	if req.Mu, err = strconv.ParseFloat(chi.URLParam(r, "mu"), 64); err != nil {
		customerrors.WriteError(w, http.StatusBadRequest, "Invalid mu")
		return
	}
	if c := chi.URLParam(r, "c"); c != "" {
		req.Model = model.ModelMMC
		if req.C, err = strconv.Atoi(c); err != nil {
			customerrors.WriteError(w, http.StatusBadRequest, "Invalid server count")
			return
		}
	}

	e, err := s.queue.Evaluate(r.Context(), r.Header.Get(SourceHeader), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Text(&buf, *e.Metrics); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBuffer(w, "text/plain; charset=utf-8", &buf)
}

func (s *Server) evaluateJSONHandler(w http.ResponseWriter, r *http.Request) {
	var req model.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		customerrors.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	e, err := s.queue.Evaluate(r.Context(), r.Header.Get(SourceHeader), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) decodeSweep(w http.ResponseWriter, r *http.Request) (*model.SweepRequest, []model.SweepPoint, bool) {
	var req model.SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		customerrors.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, nil, false
	}

	points, err := s.queue.Sweep(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, nil, false
	}
	return &req, points, true
}

func (s *Server) sweepJSONHandler(w http.ResponseWriter, r *http.Request) {
	req, points, ok := s.decodeSweep(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{Metric: req.Metric, Model: req.Model, Points: points})
}

func (s *Server) sweepCSVHandler(w http.ResponseWriter, r *http.Request) {
	req, points, ok := s.decodeSweep(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.SweepCSV(&buf, req.Metric, points); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBuffer(w, "text/csv; charset=utf-8", &buf)
}

func (s *Server) historyJSONHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			customerrors.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	list, err := s.queue.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getEvaluationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	e, err := s.queue.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getEvaluationCSVHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	e, err := s.queue.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if e.Failed() {
		err = report.ErrorCSV(&buf, e.Error)
	} else {
		err = report.CSV(&buf, *e.Metrics)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBuffer(w, "text/csv; charset=utf-8", &buf)
}

func (s *Server) historyPageHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.queue.History(r.Context(), 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<html><head><title>Queue evaluations</title></head><body>
             <h1>Recent evaluations</h1>
             <table border="1">
             <tr><th>ID</th><th>Time</th><th>Source</th><th>Model</th><th>λ</th><th>μ</th><th>ρ</th><th>L</th><th>W</th><th>Error</th></tr>`)

	for _, e := range list {
		name, rho, l, wt := string(e.Request.Model), "", "", ""
		if m := e.Metrics; m != nil {
			name = m.Model
			rho = strconv.FormatFloat(m.Rho, 'f', 6, 64)
			l = strconv.FormatFloat(m.L, 'f', 6, 64)
			wt = strconv.FormatFloat(m.W, 'f', 6, 64)
		}
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%g</td><td>%g</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), html.EscapeString(e.Source), html.EscapeString(name),
			e.Request.Lambda, e.Request.Mu, rho, l, wt, html.EscapeString(e.Error))
	}

	b.WriteString("</table></body></html>")

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.String()))
}

func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage ping failed")
		customerrors.WriteError(w, http.StatusInternalServerError, "")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	customerrors.WriteError(w, http.StatusNotFound, "")
}
