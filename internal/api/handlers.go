package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/star/darksky/internal/apperr"
	"github.com/star/darksky/internal/catalog"
	"github.com/star/darksky/internal/planner"
	"github.com/star/darksky/web"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxBodyBytes       = 1 << 20
)

type handler struct {
	svc    Service
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type generateResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Buckets   int    `json:"buckets"`
	Generated int    `json:"generated"`
}

type targetResponse struct {
	catalog.Target
	DisplayName string `json:"display_name"`
}

func (h *handler) optimalTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p params
	req := planner.OptimalTimesRequest{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Latitude:  p.required(q, "latitude"),
		Longitude: p.required(q, "longitude"),
		Timezone:  q.Get("local_timezone"),
	}
	if p.err != nil {
		h.writeError(w, r, p.err)
		return
	}

	times, err := h.svc.OptimalTimes(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, times)
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	var req planner.WarmRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, apperr.Wrap(apperr.CodeParse, "invalid JSON body", err))
		return
	}

	res, err := h.svc.Warm(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Status:    "success",
		Message:   "Optimal times generated successfully",
		Buckets:   res.Buckets,
		Generated: res.Generated,
	})
}

func (h *handler) targetSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p params
	req := planner.TargetSessionsRequest{
		StartDate:         q.Get("start_date"),
		EndDate:           q.Get("end_date"),
		Latitude:          p.required(q, "latitude"),
		Longitude:         p.required(q, "longitude"),
		TargetID:          q.Get("target_id"),
		TargetName:        q.Get("target_name"),
		RA:                p.optional(q, "ra"),
		Dec:               p.optional(q, "dec"),
		MinAltitude:       p.orDefault(q, "min_altitude", 0),
		MinSessionMinutes: p.orDefault(q, "min_session_length", 0),
		Timezone:          q.Get("local_timezone"),
	}
	if p.err != nil {
		h.writeError(w, r, p.err)
		return
	}

	out, err := h.svc.TargetSessions(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) nights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p params
	req := planner.NightsRequest{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Latitude:  p.required(q, "latitude"),
		Longitude: p.required(q, "longitude"),
		Timezone:  q.Get("local_timezone"),
	}
	if p.err != nil {
		h.writeError(w, r, p.err)
		return
	}

	out, err := h.svc.Nights(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) searchTargets(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, r, apperr.New(apperr.CodeParse, fmt.Sprintf("limit: %q is not a positive integer", v)))
			return
		}
		limit = min(n, maxSearchLimit)
	}
	writeJSON(w, http.StatusOK, h.svc.SearchTargets(r.URL.Query().Get("query"), limit))
}

func (h *handler) target(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, apperr.Wrap(apperr.CodeParse, "invalid target id", err))
		return
	}
	t, err := h.svc.Target(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, targetResponse{Target: t, DisplayName: t.DisplayName()})
}

func (h *handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats())
}

func openAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(web.OpenAPI)
}

// params collects the first query parsing failure so handlers can read
// several values and check once.
type params struct {
	err error
}

func (p *params) parse(name, v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(apperr.New(apperr.CodeParse, fmt.Sprintf("%s: %q is not a number", name, v)))
		return 0
	}
	return f
}

func (p *params) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *params) required(q url.Values, name string) float64 {
	v := q.Get(name)
	if v == "" {
		p.fail(apperr.New(apperr.CodeParse, name+" is required"))
		return 0
	}
	return p.parse(name, v)
}

func (p *params) optional(q url.Values, name string) *float64 {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	f := p.parse(name, v)
	return &f
}

func (p *params) orDefault(q url.Values, name string, def float64) float64 {
	v := q.Get(name)
	if v == "" {
		return def
	}
	return p.parse(name, v)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := http.StatusBadRequest
		if appErr.Code == apperr.CodeTargetNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: appErr.Error(), Code: appErr.Code})
		return
	}

	h.logger.Error("request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
