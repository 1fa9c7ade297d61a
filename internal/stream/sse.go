// Package stream serves cache warmup progress as Server-Sent Events.
// Clients connect via GET /api/v1/optimal-times/generate/stream with the
// same fields as the generate body, as query parameters.
//
// SSE message format:
//
//	data: {"type":"progress","done":3,"total":12}\n\n
//
// The last message is either
//
//	data: {"type":"done","buckets":12,"generated":9}\n\n
//	data: {"type":"error","error":"...","code":"INVALID_RANGE"}\n\n
//
// after which the server closes the stream. Keep-alive comments (:\n\n) are
// sent every KeepaliveInterval while a month is being generated.
//
// Only one stream may warm a quantized location at a time; another request
// for the same key gets 409 until the first ends.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/star/darksky/internal/apperr"
	"github.com/star/darksky/internal/cache"
	"github.com/star/darksky/internal/httputil"
	"github.com/star/darksky/internal/metrics"
	"github.com/star/darksky/internal/planner"
	"github.com/star/darksky/internal/store"
)

// Defaults applied by NewHandler to zero Config fields.
const (
	DefaultMaxConcurrentPerIP = 2
	DefaultMaxConcurrent      = 32
	DefaultKeepaliveInterval  = 15 * time.Second
)

// Warmer generates missing months, reporting progress per month.
type Warmer interface {
	Warm(ctx context.Context, req planner.WarmRequest, progress cache.Progress) (cache.WarmResult, error)
}

// Config holds streaming limits.
type Config struct {
	MaxConcurrentPerIP int           // concurrent streams per client IP
	MaxConcurrent      int           // concurrent streams overall
	KeepaliveInterval  time.Duration // comment ping interval
	TrustProxy         bool          // take the client IP from proxy headers
}

// Handler manages SSE warmup connections.
type Handler struct {
	warmer  Warmer
	config  Config
	limiter *warmLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(warmer Warmer, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = DefaultMaxConcurrentPerIP
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = DefaultKeepaliveInterval
	}
	return &Handler{
		warmer:  warmer,
		config:  config,
		limiter: newWarmLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:  logger,
	}
}

type warmOutcome struct {
	res cache.WarmResult
	err error
}

// HandleWarm serves the SSE warmup stream.
func (h *Handler) HandleWarm(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), apperr.CodeParse)
		return
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	key := store.KeyFor(req.Latitude, req.Longitude)
	switch refused := h.limiter.acquire(ip, key); refused {
	case "":
	case refusedLocation:
		holder, _ := h.limiter.warmingBy(key)
		metrics.IncStreamErrors("location_busy")
		h.logger.Info("stream refused, location already warming",
			"remote_ip", ip,
			"key", key.String(),
			"held_by", holder,
		)
		writeError(w, http.StatusConflict, "a warmup for "+key.String()+" is already running", "")
		return
	default:
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"limit", refused,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams", "")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"key", key.String(),
		"start_date", req.StartDate,
		"end_date", req.EndDate,
	)

	defer func() {
		h.limiter.release(ip, key)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// A warmup can outlive the server's WriteTimeout; each write below
	// sets its own deadline instead.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	ctx := r.Context()
	events := make(chan progressMessage)
	result := make(chan warmOutcome, 1)
	go func() {
		res, err := h.warmer.Warm(ctx, req, func(done, total int) {
			select {
			case events <- progressMessage{Type: "progress", Done: done, Total: total}:
			case <-ctx.Done():
			}
		})
		result <- warmOutcome{res: res, err: err}
	}()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-events:
			if err := c.sendJSON(msg); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case out := <-result:
			if err := c.sendJSON(h.finalMessage(out)); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error (final)", "remote_ip", ip, "error", err)
			}
			return

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// finalMessage turns the warmup outcome into the closing SSE payload.
// Errors without a client-facing code are logged and reported generically.
func (h *Handler) finalMessage(out warmOutcome) any {
	if out.err == nil {
		return doneMessage{Type: "done", Buckets: out.res.Buckets, Generated: out.res.Generated}
	}

	var appErr *apperr.Error
	if errors.As(out.err, &appErr) {
		metrics.IncStreamErrors("bad_request")
		return errorMessage{Type: "error", Error: appErr.Error(), Code: appErr.Code}
	}

	metrics.IncStreamErrors("warm_failed")
	h.logger.Error("stream warmup failed", "error", out.err, "buckets_done", out.res.Buckets)
	return errorMessage{Type: "error", Error: "internal error"}
}

// parseRequest reads the warmup fields from the query string. Shape checks
// run here so that malformed requests get a plain 400 rather than a stream.
func parseRequest(q url.Values) (planner.WarmRequest, error) {
	req := planner.WarmRequest{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	var err error
	if req.Latitude, err = parseFloat(q, "latitude"); err != nil {
		return req, err
	}
	if req.Longitude, err = parseFloat(q, "longitude"); err != nil {
		return req, err
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func parseFloat(q url.Values, name string) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %q is not a number", name, v)
	}
	return f, nil
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorMessage{Error: msg, Code: code})
}

// SSE message payload types.

type progressMessage struct {
	Type  string `json:"type"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

type doneMessage struct {
	Type      string `json:"type"`
	Buckets   int    `json:"buckets"`
	Generated int    `json:"generated"`
}

type errorMessage struct {
	Type  string `json:"type,omitempty"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
