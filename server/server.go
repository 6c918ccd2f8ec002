// ABOUTME: HTTP review surface for pipeline runs: start, inspect, resume, and roll back over REST.
// ABOUTME: Decisions arrive as raw JSON and are validated by the engine before any state changes.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/2389-research/inkwell/loom"
)

// Server exposes the run engine over HTTP.
type Server struct {
	engine *loom.Engine
	router chi.Router
	md     goldmark.Markdown
}

// New creates a Server around an engine.
func New(engine *loom.Engine) *Server {
	s := &Server{
		engine: engine,
		md:     goldmark.New(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/payload", s.handleGetPayload)
			r.Get("/events", s.handleGetEvents)
			r.Post("/resume", s.handleResume)
			r.Post("/rollback", s.handleRollback)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// createRunRequest is the body for starting a run.
type createRunRequest struct {
	Documents []loom.Document `json:"documents"`
}

// runSummary is the JSON shape for run status responses.
type runSummary struct {
	ID        string                    `json:"id"`
	Status    loom.RunStatus            `json:"status"`
	Phase     loom.Phase                `json:"phase"`
	Awaiting  loom.ApprovalType         `json:"awaiting_approval,omitempty"`
	Revisions map[loom.ArtifactKind]int `json:"revisions,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

func summarize(run *loom.Run) runSummary {
	return runSummary{
		ID:        run.ID,
		Status:    run.Status,
		Phase:     run.State.Phase,
		Awaiting:  run.State.AwaitingApproval,
		Revisions: run.State.Revisions,
		Error:     run.Error,
	}
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	run, err := s.engine.Begin(req.Documents)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The run advances in the background; the client polls status and
	// payload endpoints until it suspends or finishes. The request context
	// ends with the response, so the drive gets its own.
	go func() {
		if _, err := s.engine.Drive(context.Background(), run.ID); err != nil {
			log.Printf("run %s: %v", run.ID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, summarize(run))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	metas, err := s.engine.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": metas})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(run))
}

// payloadResponse wraps the suspension payload with an HTML preview of the
// artifact under review, when one exists.
type payloadResponse struct {
	RunID   string        `json:"run_id"`
	Payload *loom.Payload `json:"payload"`
	Preview string        `json:"preview_html,omitempty"`
}

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Status != loom.RunSuspended || run.Payload == nil {
		writeError(w, http.StatusConflict, "run is not suspended at a checkpoint")
		return
	}

	resp := payloadResponse{RunID: run.ID, Payload: run.Payload}
	if run.Payload.Approval == loom.ApprovalArticleReview && run.State.Draft != nil {
		var html bytes.Buffer
		if err := s.md.Convert([]byte(run.State.Draft.Markdown), &html); err == nil {
			resp.Preview = html.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": run.ID, "events": run.Events})
}

// resumeRequest is the body for submitting a human decision.
type resumeRequest struct {
	Approval loom.ApprovalType `json:"approval_type"`
	Decision json.RawMessage   `json:"decision"`
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := s.engine.Resume(r.Context(), chi.URLParam(r, "runID"), req.Approval, req.Decision)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"decision_id": uuid.NewString(),
		"run":         summarize(run),
	})
}

// rollbackRequest is the body for rewinding a run.
type rollbackRequest struct {
	Point loom.ApprovalType `json:"point"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := s.engine.Rollback(r.Context(), chi.URLParam(r, "runID"), req.Point)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(run))
}

// loadRun resolves the run from the URL, writing the error response itself.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*loom.Run, bool) {
	run, err := s.engine.Get(chi.URLParam(r, "runID"))
	if err != nil {
		writeEngineError(w, err)
		return nil, false
	}
	return run, true
}

// writeEngineError maps engine sentinel errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, loom.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, loom.ErrNotSuspended), errors.Is(err, loom.ErrApprovalMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, loom.ErrInvalidDecision), errors.Is(err, loom.ErrUnknownField),
		errors.Is(err, loom.ErrUnknownApproval), errors.Is(err, loom.ErrUnknownRollbackPoint):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
