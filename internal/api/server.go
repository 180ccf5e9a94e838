package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tutorflow/internal/config"
	"tutorflow/internal/models"
	"tutorflow/internal/progress"
	"tutorflow/internal/storage"
	"tutorflow/internal/workflows"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

type Server struct {
	cfg         config.Config
	db          *storage.DB
	requestRepo *storage.RequestRepo
	currRepo    *storage.CurriculumRepo
	nodeRepo    *storage.NodeRepo
	messageRepo *storage.MessageRepo
	bus         *progress.Bus
	temporal    tclient.Client
	log         *zap.SugaredLogger
}

func NewServer(cfg config.Config, log *zap.SugaredLogger) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:         cfg,
		db:          db,
		requestRepo: storage.NewRequestRepo(db),
		currRepo:    storage.NewCurriculumRepo(db),
		nodeRepo:    storage.NewNodeRepo(db),
		messageRepo: storage.NewMessageRepo(db),
		bus:         progress.NewBus(cfg.RedisAddr, log),
		temporal:    tc,
		log:         log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/requests", s.handleRequests)
	mux.HandleFunc("/requests/", s.handleRequestScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		requests, err := s.requestRepo.ListRequests(r.Context(), r.URL.Query().Get("student_id"))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
	case http.MethodPost:
		var req struct {
			StudentID      string `json:"student_id"`
			Title          string `json:"title"`
			Description    string `json:"description"`
			Tag            string `json:"tag"`
			Level          string `json:"level"`
			AssignedExpert string `json:"assigned_expert"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.StudentID = strings.TrimSpace(req.StudentID)
		req.Title = strings.TrimSpace(req.Title)
		if req.StudentID == "" || req.Title == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("student_id and title are required"))
			return
		}

		requestID := uuid.NewString()
		if err := s.requestRepo.CreateRequest(r.Context(), models.Request{
			RequestID:      requestID,
			StudentID:      req.StudentID,
			Title:          req.Title,
			Description:    req.Description,
			Tag:            strings.TrimSpace(req.Tag),
			Level:          strings.TrimSpace(req.Level),
			AssignedExpert: strings.TrimSpace(req.AssignedExpert),
		}); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"request_id": requestID})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleRequestScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/requests/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	requestID := parts[0]

	if len(parts) == 1 {
		s.handleRequestByID(w, r, requestID)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "generate":
			if r.Method != http.MethodPost {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleGenerate(w, r, requestID)
			return
		case "progress":
			if r.Method != http.MethodGet {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleProgress(w, r, requestID)
			return
		case "curriculum":
			if r.Method != http.MethodGet {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleCurriculum(w, r, requestID)
			return
		case "messages":
			s.handleMessages(w, r, requestID)
			return
		}
	}
	if len(parts) == 3 && parts[1] == "progress" && parts[2] == "stream" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleProgressStream(w, r, requestID)
		return
	}
	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleRequestByID(w http.ResponseWriter, r *http.Request, requestID string) {
	switch r.Method {
	case http.MethodGet:
		req, err := s.requestRepo.GetRequestByID(r.Context(), requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeErr(w, http.StatusNotFound, fmt.Errorf("request not found"))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	case http.MethodPatch:
		var req struct {
			Title          *string `json:"title"`
			Description    *string `json:"description"`
			Tag            *string `json:"tag"`
			Level          *string `json:"level"`
			AssignedExpert *string `json:"assigned_expert"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		err := s.requestRepo.UpdateRequest(r.Context(), requestID, storage.RequestUpdate{
			Title:          req.Title,
			Description:    req.Description,
			Tag:            req.Tag,
			Level:          req.Level,
			AssignedExpert: req.AssignedExpert,
		})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeErr(w, http.StatusNotFound, fmt.Errorf("request not found"))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		updated, err := s.requestRepo.GetRequestByID(r.Context(), requestID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.requestRepo.DeleteRequest(r.Context(), requestID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeErr(w, http.StatusNotFound, fmt.Errorf("request not found"))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handleGenerate triggers the curriculum pipeline and waits for it to finish.
// The deterministic workflow ID makes a second trigger for the same request a
// conflict while the first run is still in flight.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, requestID string) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.TriggerTimeoutSecs)*time.Second)
	defer cancel()

	we, err := s.temporal.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(requestID),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.CurriculumBuildWorkflow, workflows.CurriculumBuildInput{
		RequestID:           requestID,
		StageTimeoutSeconds: s.cfg.StageTimeoutSecs,
		ResourcesPerTopic:   s.cfg.ResourcesPerTopic,
	})
	if err != nil {
		writeErr(w, startErrorStatus(err), err)
		return
	}

	var result workflows.CurriculumBuildResult
	if err := we.Get(ctx, &result); err != nil {
		s.log.Errorw("curriculum generation failed", "request_id", requestID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   pipelineErrorMessage(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"curriculum_id": result.CurriculumID,
		"node_count":    result.NodeCount,
	})
}

// startErrorStatus separates "a run is already in flight" from genuine start
// failures (Temporal unreachable, bad task queue), which are server errors.
func startErrorStatus(err error) int {
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// pipelineErrorMessage unwraps the activity-level application error so the
// caller sees the stage failure, not the Temporal wrapping around it.
func pipelineErrorMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, requestID string) {
	resp, qErr := s.temporal.QueryWorkflow(r.Context(), workflows.WorkflowID(requestID), "", workflows.QueryGetRunStatus)
	if qErr == nil {
		var status workflows.RunStatus
		if err := resp.Get(&status); err == nil {
			writeJSON(w, http.StatusOK, status)
			return
		}
	}

	// No queryable run: fall back to what the request row says.
	req, err := s.requestRepo.GetRequestByID(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("request not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, workflows.RunStatus{
		RequestID: requestID,
		Status:    req.Status,
		Stages:    map[string]workflows.StageStatus{},
	})
}

// handleProgressStream relays pipeline progress events to the client as
// server-sent events until the final step or client disconnect.
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request, requestID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	events, closeFn, err := s.bus.Subscribe(r.Context(), requestID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	defer closeFn()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			payload, _ := json.Marshal(map[string]any{
				"step":        ev.Step,
				"total_steps": ev.TotalSteps,
				"label":       progress.StepLabel(ev.Step),
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if ev.Step >= ev.TotalSteps {
				return
			}
		}
	}
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request, requestID string) {
	curriculum, err := s.currRepo.GetByRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("curriculum not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	nodes, err := s.nodeRepo.ListByCurriculum(r.Context(), curriculum.CurriculumID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"curriculum_id": curriculum.CurriculumID,
		"request_id":    curriculum.RequestID,
		"created_at":    curriculum.CreatedAt,
		"nodes":         nodes,
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, requestID string) {
	switch r.Method {
	case http.MethodGet:
		messages, err := s.messageRepo.ListByRequest(r.Context(), requestID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
	case http.MethodPost:
		var req struct {
			SenderID string `json:"sender_id"`
			Body     string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.SenderID = strings.TrimSpace(req.SenderID)
		if req.SenderID == "" || strings.TrimSpace(req.Body) == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("sender_id and body are required"))
			return
		}

		// The request must exist; messages never dangle.
		if _, err := s.requestRepo.GetRequestByID(r.Context(), requestID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeErr(w, http.StatusNotFound, fmt.Errorf("request not found"))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}

		messageID := uuid.NewString()
		if err := s.messageRepo.InsertMessage(r.Context(), models.Message{
			MessageID: messageID,
			RequestID: requestID,
			SenderID:  req.SenderID,
			Body:      req.Body,
		}); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message_id": messageID})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "TF-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "TF-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "TF-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "TF-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "TF-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "TF-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "TF-API-4009"
		msg = "A curriculum run is already in flight for this request."
	case status == http.StatusMethodNotAllowed:
		code = "TF-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "student_id and title are required"):
			msg = "Both student and title are required."
		case strings.Contains(low, "sender_id and body are required"):
			msg = "Both sender and message body are required."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "request not found"):
			msg = "Tutoring request was not found."
		case strings.Contains(low, "curriculum not found"):
			msg = "No curriculum has been generated for this request yet."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
