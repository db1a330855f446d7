package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gearsync/kit"
	"github.com/hazyhaar/gearsync/optimizer"
	"github.com/hazyhaar/gearsync/shield"
)

// Version is reported by the MCP endpoint.
const Version = "0.1.0"

// DefaultMaxBody bounds the size of a sync request body.
const DefaultMaxBody = 1 << 20

// Result summarises an applied sync.
type Result struct {
	Entries         int `json:"entries"`
	GearMatched     int `json:"gear_matched"`
	SettingsUpdated int `json:"settings_updated"`
}

// Server applies sync payloads to the configured files.
type Server struct {
	settings *Settings
	history  *History
	logger   *slog.Logger
	maxBody  int64
	mcp      *mcp.Server

	// mu serialises file rewrites between concurrent syncs.
	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithHistory records every sync in h.
func WithHistory(h *History) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBody overrides DefaultMaxBody.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// NewServer creates a Server for settings.
func NewServer(settings *Settings, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		logger:   slog.Default(),
		maxBody:  DefaultMaxBody,
	}
	for _, o := range opts {
		o(s)
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "gearsyncd", Version: Version}, nil)
	s.RegisterMCP(s.mcp)
	return s
}

// Handler returns the HTTP routes:
//
//	POST /         apply a sync payload
//	GET  /healthz  liveness
//	GET  /history  recent syncs (?limit=n)
//	     /mcp      MCP streamable HTTP endpoint
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.maxBody) {
		r.Use(mw)
	}

	r.Post("/", s.handleSync)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Get("/history", s.handleHistory)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil))
	return r
}

// Apply writes payload into the profile and the settings file, in that order.
func (s *Server) Apply(ctx context.Context, payload optimizer.Payload) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := payload.Index()
	res := Result{Entries: len(payload)}

	matched, err := UpdateProfile(s.settings.FilePath, ids)
	if err != nil {
		return res, err
	}
	res.GearMatched = matched

	updated, err := UpdateSettings(s.settings.SettingsPath, s.settings.SettingsMapper, ids)
	if err != nil {
		return res, err
	}
	res.SettingsUpdated = updated
	return res, nil
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := shield.GetLogger(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		httpError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	payload, err := optimizer.DecodePayload(body)
	if err == nil {
		err = validateIDs(payload)
	}
	if err != nil {
		log.Warn("receiver: rejected payload", "error", err)
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	log.Info("receiver: optimizer request received", "entries", len(payload))

	res, err := s.Apply(ctx, payload)
	rec := SyncRecord{
		TraceID:         kit.GetTraceID(ctx),
		Entries:         res.Entries,
		Labels:          payload.Labels(),
		GearMatched:     res.GearMatched,
		SettingsUpdated: res.SettingsUpdated,
		Status:          StatusApplied,
	}
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
	}
	s.record(ctx, rec)

	if err != nil {
		log.Error("receiver: update files failed", "error", err)
		httpError(w, http.StatusInternalServerError, "update files failed")
		return
	}

	log.Info("receiver: files updated",
		"gear_matched", res.GearMatched, "settings_updated", res.SettingsUpdated)
	writeJSON200(w, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		httpError(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		shield.GetLogger(r.Context()).Error("receiver: history failed", "error", err)
		httpError(w, http.StatusInternalServerError, "history failed")
		return
	}
	writeJSON200(w, recs)
}

func (s *Server) record(ctx context.Context, rec SyncRecord) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("receiver: record history failed", "error", err)
	}
}

// validateIDs rejects identifiers outside the unsigned 32-bit range the
// profile format stores.
func validateIDs(p optimizer.Payload) error {
	for _, e := range p {
		for _, id := range e.IDs {
			if id < 0 || int64(id) > math.MaxUint32 {
				return fmt.Errorf("entry %q: id %d out of range", e.Name, id)
			}
		}
	}
	return nil
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON200(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
