// Package web serves the schedule over HTTP: a JSON API, the plain-text
// report, a small HTML week view, and the last PNG snapshot.
package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/justinas/alice"

	"freecal/internal/clock"
	"freecal/internal/config"
	appLog "freecal/internal/log"
	"freecal/internal/model"
	"freecal/internal/pipeline"
	"freecal/internal/report"
)

// resultTTL bounds how stale a served schedule may be. Refreshes via cron,
// the watcher, or POST /api/refresh invalidate the cache earlier.
const resultTTL = 30 * time.Second

//go:embed view.html
var viewHTML string

var viewTemplate = template.Must(template.New("view").Parse(viewHTML))

// Server provides the HTTP endpoints over the pipeline result.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// Cached pipeline result so every request does not re-read and
	// re-resolve the input source.
	mu     sync.RWMutex
	cached *cachedResult
}

type cachedResult struct {
	res       *pipeline.Result
	updatedAt time.Time
}

// NewServer constructs a Server for the given configuration.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/report.txt", s.handleReport)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	s.mux.HandleFunc("/", s.handleView)
}

// Handler returns the middleware-wrapped handler for this server.
func (s *Server) Handler() http.Handler {
	chain := alice.New(s.logRequests)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		chain = chain.Append(s.basicAuth)
	}
	return chain.Then(s.mux)
}

// Invalidate drops the cached result so the next request recomputes.
func (s *Server) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Refresh recomputes the cached result immediately. Cron ticks and the
// input watcher use it so requests after a refresh never see stale data.
func (s *Server) Refresh(ctx context.Context) error {
	s.Invalidate()
	_, err := s.result(ctx)
	return err
}

// result returns a fresh-enough pipeline result, recomputing when the cache
// is empty or expired.
func (s *Server) result(ctx context.Context) (*pipeline.Result, error) {
	s.mu.RLock()
	c := s.cached
	s.mu.RUnlock()
	if c != nil && time.Since(c.updatedAt) < resultTTL {
		return c.res, nil
	}

	res, err := pipeline.Run(ctx, s.cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = &cachedResult{res: res, updatedAt: time.Now()}
	s.mu.Unlock()
	return res, nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuth wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="freecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	WeekStart   string         `json:"week_start"`
	GeneratedAt time.Time      `json:"generated_at"`
	Source      string         `json:"source"`
	EventCount  int            `json:"event_count"`
	Days        []dayDTO       `json:"days"`
	Diagnostics diagnosticsDTO `json:"diagnostics"`
}

type dayDTO struct {
	Day     string     `json:"day"`
	Entries []entryDTO `json:"entries"`
	Free    []freeDTO  `json:"free"`
}

type entryDTO struct {
	Name    string `json:"name"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Label   string `json:"label"`
	Type    string `json:"event_type,omitempty"`
	Repeats bool   `json:"repeats"`
}

type freeDTO struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

type diagnosticsDTO struct {
	DroppedTokens  int `json:"dropped_tokens"`
	MalformedTimes int `json:"malformed_times"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	res, err := s.result(r.Context())
	if err != nil {
		appLog.Error("api schedule: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	writeJSON(w, http.StatusOK, s.buildResponse(res))
}

func (s *Server) buildResponse(res *pipeline.Result) scheduleResponse {
	days := make([]dayDTO, 0, model.NumWeekdays)
	for _, day := range report.DayOrder(s.cfg.WeekStartDay()) {
		entries := make([]entryDTO, 0)
		for _, e := range res.Schedule.Entries(day) {
			entries = append(entries, entryDTO{
				Name:    e.Name,
				Start:   e.Start,
				End:     e.End,
				Label:   report.TimeLabel(e),
				Type:    e.EventType,
				Repeats: e.Repeats,
			})
		}
		free := make([]freeDTO, 0)
		for _, iv := range res.Free.For(day) {
			free = append(free, freeDTO{
				Start: iv.Start,
				End:   iv.End,
				Label: clock.Format(iv.Start) + " - " + clock.Format(iv.End),
			})
		}
		days = append(days, dayDTO{Day: day.String(), Entries: entries, Free: free})
	}

	return scheduleResponse{
		WeekStart:   s.cfg.WeekStart,
		GeneratedAt: res.GeneratedAt,
		Source:      res.Source,
		EventCount:  res.EventCount,
		Days:        days,
		Diagnostics: diagnosticsDTO{
			DroppedTokens:  len(res.Dropped),
			MalformedTimes: len(res.Malformed),
		},
	}
}

// handleRefresh forces a re-read of the input source.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	s.Invalidate()
	res, err := s.result(r.Context())
	if err != nil {
		appLog.Error("api refresh: reload failed", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh schedule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"generated_at": res.GeneratedAt,
		"event_count":  res.EventCount,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.result(r.Context())
	if err != nil {
		appLog.Error("report.txt: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	var b strings.Builder
	data := report.Data{Schedule: res.Schedule, Free: res.Free, GeneratedAt: res.GeneratedAt}
	if err := report.Render(&b, data, report.Options{WeekStart: s.cfg.WeekStartDay()}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// handlePreview serves the last captured PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Snapshot == "" {
		writeError(w, http.StatusNotFound, "no snapshot configured")
		return
	}
	http.ServeFile(w, r, s.cfg.Snapshot)
}

// handleView renders the embedded HTML week view. The root element carries
// data-ready="true" so the capture stage can wait for it.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	res, err := s.result(r.Context())
	if err != nil {
		appLog.Error("view: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, s.buildResponse(res)); err != nil {
		appLog.Error("view: template failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render view")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
