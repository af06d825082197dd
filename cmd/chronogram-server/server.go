package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/edit"
	"github.com/codeGROOVE-dev/chronogram/pkg/render"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
	"github.com/codeGROOVE-dev/chronogram/pkg/timeline"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 10 << 20

// limiterIdle is how long a client's limiter is kept after its last request.
const limiterIdle = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	now       func() time.Time
	clients   map[string]*client
	lastSweep time.Time
	every     rate.Limit
	burst     int
	idle      time.Duration
	mu        sync.Mutex
}

func newRateLimiter(every rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*client),
		every:   every,
		burst:   burst,
		idle:    limiterIdle,
		now:     time.Now,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		rl.sweep(now)
	}
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()
	return c.limiter.AllowN(now, 1)
}

// sweep forgets clients idle for longer than rl.idle. Callers hold rl.mu.
func (rl *rateLimiter) sweep(now time.Time) {
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idle {
			delete(rl.clients, ip)
		}
	}
	rl.lastSweep = now
}

// size is the number of tracked clients.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

type server struct {
	engine  *timeline.Engine
	limiter *rateLimiter
	logger  *slog.Logger
}

func newServer(engine *timeline.Engine, limiter *rateLimiter, logger *slog.Logger) *server {
	return &server{engine: engine, limiter: limiter, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/v1/timeline", s.handleTimeline)
	mux.HandleFunc("POST /api/v1/render", s.handleRender)
	return s.wrap(mux)
}

// timelineRequest is a roster plus the view settings. Month and zone fall
// back to the roster's own.
type timelineRequest struct {
	Roster   roster.Dataset `json:"roster"`
	Month    string         `json:"month,omitempty"`
	HomeZone string         `json:"home_zone,omitempty"`
	Edits    []edit.Record  `json:"edits,omitempty"`
	Phases   bool           `json:"phases,omitempty"`
}

func (req timelineRequest) input() (timeline.Input, error) {
	month := req.Month
	if month == "" {
		month = req.Roster.Month
	}
	if month == "" {
		return timeline.Input{}, errors.New("month is required")
	}
	year, m, err := roster.ParseMonth(month)
	if err != nil {
		return timeline.Input{}, err
	}
	zone := req.HomeZone
	if zone == "" {
		zone = req.Roster.HomeTimezone
	}
	in := timeline.Input{
		Year:     year,
		Month:    m,
		HomeZone: zone,
		Duties:   req.Roster.Duties,
		RestDays: req.Roster.RestDays,
		Phases:   req.Phases,
	}
	if len(req.Edits) > 0 {
		in.Edits = edit.NewSet(req.Edits...)
	}
	return in, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]
				s.logger.Error("PANIC: Request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"client_ip", clientIP(r),
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		}
		handler.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.logger.Debug("failed to write health response", "error", err)
	}
}

// decode applies the rate limit and parses the body. It writes the error
// response itself and reports whether the handler should continue.
func (s *server) decode(w http.ResponseWriter, r *http.Request) (timeline.Input, bool) {
	ip := clientIP(r)
	requestID := w.Header().Get("X-Request-ID")
	if !s.limiter.allow(ip) {
		s.logger.Warn("Rate limit exceeded", "request_id", requestID, "client_ip", ip)
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return timeline.Input{}, false
	}

	var req timelineRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Warn("Invalid request body", "request_id", requestID, "client_ip", ip, "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return timeline.Input{}, false
	}
	in, err := req.input()
	if err != nil {
		s.logger.Warn("Invalid month", "request_id", requestID, "month", req.Month, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return timeline.Input{}, false
	}
	return in, true
}

func (s *server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, ok := s.decode(w, r)
	if !ok {
		return
	}
	data := s.engine.Build(in)

	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to encode timeline", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
	s.logger.Info("Timeline request completed",
		"request_id", w.Header().Get("X-Request-ID"),
		"month", fmt.Sprintf("%d-%02d", in.Year, in.Month),
		"duties", len(in.Duties),
		"warnings", len(data.Warnings),
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decode(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.Render(&buf, s.engine.Build(in), render.Options{NoColor: true, Legend: true, Warnings: true}); err != nil {
		s.logger.Error("Failed to render timeline", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
