package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"poke-mcp/internal/tool"
)

// mountPath is the fixed prefix the tool protocol is served under. Paths
// outside it (besides /health and /metrics) are not handled.
const mountPath = "/mcp"

// sessionHeader carries the session id on streaming-http requests and
// responses.
const sessionHeader = "Mcp-Session-Id"

// StreamingHTTPTransport serves tool calls over HTTP. Requests of different
// sessions run concurrently; requests of one session are serialized by its
// Session. Tool failures travel in the response body with status 200; only
// malformed framing produces a 4xx.
type StreamingHTTPTransport struct {
	dispatcher *tool.Dispatcher
	registry   *tool.Registry
	sessions   *SessionManager
	router     *chi.Mux
	log        *logrus.Entry
}

// NewStreamingHTTPTransport wires the router and middleware.
func NewStreamingHTTPTransport(reg *tool.Registry, d *tool.Dispatcher, sessions *SessionManager) *StreamingHTTPTransport {
	t := &StreamingHTTPTransport{
		dispatcher: d,
		registry:   reg,
		sessions:   sessions,
		log:        logrus.WithField("component", "http"),
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", t.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(mountPath, func(r chi.Router) {
		r.Get("/tools", t.handleListTools)
		r.Post("/call", t.handleCall)
		r.Delete("/", t.handleEndSession)
	})
	t.router = r
	return t
}

// Router exposes the root HTTP handler for the transport.
func (t *StreamingHTTPTransport) Router() http.Handler { return t.router }

// Run serves on addr until ctx is cancelled, then drains sessions and shuts
// the listener down.
func (t *StreamingHTTPTransport) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           t.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	t.log.WithField("addr", addr).Info("streaming-http transport listening")

	select {
	case <-ctx.Done():
		t.log.Info("shutting down")
		drainErr := t.sessions.Shutdown(context.Background())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return drainErr
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return t.sessions.Shutdown(context.Background())
	}
}

func (t *StreamingHTTPTransport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (t *StreamingHTTPTransport) handleListTools(w http.ResponseWriter, _ *http.Request) {
	descriptors := t.registry.List()
	tools := make([]catalogTool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, catalogTool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (t *StreamingHTTPTransport) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "malformed request: " + err.Error()})
		return
	}
	sess, err := t.sessions.Acquire(r.Header.Get(sessionHeader))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{Error: err.Error()})
		return
	}
	w.Header().Set(sessionHeader, sess.ID)

	var res tool.Result
	if err := sess.Do(func() {
		res = t.dispatcher.Dispatch(r.Context(), tool.Invocation{Tool: req.Tool, Arguments: req.Arguments})
	}); err != nil {
		writeJSON(w, http.StatusConflict, errorEnvelope{Error: err.Error()})
		return
	}
	observeCall(req.Tool, res)
	writeJSON(w, http.StatusOK, envelopeFor(res))
}

func (t *StreamingHTTPTransport) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "missing " + sessionHeader + " header"})
		return
	}
	if !t.sessions.Terminate(id) {
		writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "unknown session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "session draining"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
