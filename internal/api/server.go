package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/tempo/internal/auth"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/report"
)

// Version is reported by /health; release builds set it with -ldflags.
var Version = "dev"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string
	APIToken     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server provides the HTTP API for Tempo.
type Server struct {
	service *Service
	cfg     ServerConfig
	log     *slog.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, cfg ServerConfig, log *slog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{service: service, cfg: cfg, log: log}
}

// Handler returns the routed handler with logging and auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/clients", s.handleClients)
	mux.HandleFunc("/clients/", s.handleClientByID)

	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectByID)

	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)

	mux.HandleFunc("/proposals", s.handleProposals)
	mux.HandleFunc("/proposals/", s.handleProposalByID)

	mux.HandleFunc("/reports/timesheet", s.handleTimesheet)
	mux.HandleFunc("/dashboard", s.handleDashboard)

	return s.logRequests(auth.Middleware(s.cfg.APIToken, "/health")(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("starting tempo daemon", "addr", s.cfg.Addr, "auth", s.cfg.APIToken != "")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
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
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// --- Helpers ---

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("invalid json: %v", err)
	}
	return nil
}

// splitPath returns the id and optional action below prefix.
func splitPath(path, prefix string) (string, string) {
	parts := strings.SplitN(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/", 2)
	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	return id, action
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, invalid("bad time %q", v)
	}
	return t, nil
}

// --- Health ---

// HealthResponse is the body of /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, DB: "ok", Version: Version, Time: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// --- Client Handlers ---

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		clients, err := s.service.ListClients(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, clients)
	case http.MethodPost:
		var in ClientInput
		if err := decodeJSON(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		c, err := s.service.CreateClient(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleClientByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/clients/")
	if id == "" || action != "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := s.service.GetClient(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := s.service.DeleteClient(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// --- Project Handlers ---

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		archived, _ := strconv.ParseBool(q.Get("archived"))
		projects, err := s.service.ListProjects(r.Context(), q.Get("client_id"), archived)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, projects)
	case http.MethodPost:
		var in ProjectInput
		if err := decodeJSON(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := s.service.CreateProject(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		methodNotAllowed(w)
	}
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/projects/")
	if id == "" {
		http.Error(w, "project id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		p, err := s.service.GetProject(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case action == "" && r.Method == http.MethodPatch:
		var req archiveRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := s.service.ArchiveProject(r.Context(), id, req.Archived)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.DeleteProject(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "tasks" && r.Method == http.MethodGet:
		tasks, err := s.service.ListTasksByScope(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	case action == "active" && r.Method == http.MethodGet:
		task, err := s.service.ActiveTask(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if task == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, task)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Task Handlers ---

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := models.TaskFilter{
			ProjectID: q.Get("project_id"),
			Status:    models.TaskStatus(q.Get("status")),
		}
		if v := q.Get("running"); v != "" {
			running, err := strconv.ParseBool(v)
			if err != nil {
				s.writeError(w, r, invalid("running must be a boolean"))
				return
			}
			filter.Running = &running
		}
		tasks, err := s.service.ListTasks(r.Context(), filter)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var in TaskInput
		if err := decodeJSON(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		task, err := s.service.CreateTask(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	default:
		methodNotAllowed(w)
	}
}

// handleTaskByID handles /tasks/{id}/*
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID, action := splitPath(r.URL.Path, "/tasks/")
	if taskID == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getTask(w, r, taskID)
	case action == "" && r.Method == http.MethodPatch:
		s.updateTask(w, r, taskID)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.DeleteTask(r.Context(), taskID); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "start" && r.Method == http.MethodPost:
		s.timerAction(w, r, taskID, s.service.StartTask)
	case action == "stop" && r.Method == http.MethodPost:
		s.timerAction(w, r, taskID, s.service.StopTask)
	case action == "elapsed" && r.Method == http.MethodGet:
		view, err := s.service.Elapsed(r.Context(), taskID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case action == "sessions" && r.Method == http.MethodGet:
		sessions, err := s.service.Sessions(r.Context(), taskID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := s.service.GetTask(r.Context(), taskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.service.UpdateTask(r.Context(), taskID, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) timerAction(w http.ResponseWriter, r *http.Request, taskID string,
	fn func(context.Context, string) (*TimerResult, error)) {
	res, err := fn(r.Context(), taskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Proposal Handlers ---

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		proposals, err := s.service.ListProposals(r.Context(), q.Get("client_id"), models.ProposalStatus(q.Get("status")))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, proposals)
	case http.MethodPost:
		var in ProposalInput
		if err := decodeJSON(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := s.service.CreateProposal(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		methodNotAllowed(w)
	}
}

type statusRequest struct {
	Status models.ProposalStatus `json:"status"`
}

func (s *Server) handleProposalByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/proposals/")
	if id == "" {
		http.Error(w, "proposal id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		p, err := s.service.GetProposal(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.DeleteProposal(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "items" && r.Method == http.MethodPost:
		var item models.ProposalItem
		if err := decodeJSON(r, &item); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := s.service.AddProposalItem(r.Context(), id, item)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case action == "status" && r.Method == http.MethodPost:
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := s.service.SetProposalStatus(r.Context(), id, req.Status)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case action == "pdf" && r.Method == http.MethodGet:
		p, clientName, err := s.service.ProposalDocument(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := report.RenderProposalPDF(&buf, p, clientName); err != nil {
			s.writeError(w, r, fmt.Errorf("render proposal: %w", err))
			return
		}
		w.Header().Set("Content-Type", report.FormatPDF.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="proposal-%s.pdf"`, id))
		w.Write(buf.Bytes())
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Reports ---

func (s *Server) handleTimesheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()

	group, err := report.ParseGroup(q.Get("group"))
	if err != nil {
		s.writeError(w, r, invalid("%v", err))
		return
	}
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeError(w, r, invalid("%v", err))
		return
	}
	from, err := parseTime(q.Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseTime(q.Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ts, err := s.service.Timesheet(r.Context(), report.Query{
		ProjectID: q.Get("project_id"),
		From:      from,
		To:        to,
		Group:     group,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, ts, format); err != nil {
		s.writeError(w, r, fmt.Errorf("render timesheet: %w", err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Write(buf.Bytes())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	d, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
