package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/publish"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/workflow"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Runtime.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type tenantCreateReq struct {
	TenantID string `json:"tenantId"`
}

func (s *Server) handleTenantCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req tenantCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenantId required")
		return
	}
	meta, err := s.deps.Runtime.EnsureTenant(req.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

type publishReq struct {
	TenantID            string          `json:"tenantId"`
	EventType           string          `json:"eventType"`
	ConsumerApplication string          `json:"consumerApplication"`
	EntityType          string          `json:"entityType"`
	EntityID            string          `json:"entityId"`
	Data                json.RawMessage `json:"data"`
	PublishedBy         string          `json:"publishedBy"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req publishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	env, err := s.deps.Publisher.Publish(r.Context(), publish.Request{
		TenantID:            req.TenantID,
		EventType:           req.EventType,
		ConsumerApplication: req.ConsumerApplication,
		EntityType:          req.EntityType,
		EntityID:            req.EntityID,
		Data:                req.Data,
		PublishedBy:         req.PublishedBy,
	})
	switch {
	case errors.Is(err, publish.ErrRetriable):
		// the caller repeats the whole publish; dedupe is by eventId
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, event.ErrMalformed), errors.Is(err, event.ErrUnknownEventType):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"eventId":   env.EventID,
		"timestamp": env.Timestamp,
	})
}

func (s *Server) handleAckSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var ack event.Ack
	if err := json.NewDecoder(r.Body).Decode(&ack); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ack.AckTimestamp.IsZero() {
		ack.AckTimestamp = time.Now().UTC()
	}
	if err := s.deps.Acks.Submit(r.Context(), ack); err != nil {
		if errors.Is(err, event.ErrMalformed) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// applied asynchronously by the ack consumer
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "eventId required")
		return
	}
	rec, err := s.deps.Tracking.Get(eventID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no tracking record for eventId")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSyncHealth(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenantId required")
		return
	}
	windowMs := s.deps.Runtime.Config().Tracking.HealthWindowMs
	if v := r.URL.Query().Get("windowMs"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "windowMs must be a positive integer")
			return
		}
		windowMs = parsed
	}
	m, err := s.deps.Tracking.Health(tenantID, windowMs, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleEventSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := q.Get("tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenantId required")
		return
	}
	var opts tracking.SearchOptions
	var err error
	if v := q.Get("fromMs"); v != "" {
		if opts.FromMs, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "fromMs must be an integer")
			return
		}
	}
	if v := q.Get("toMs"); v != "" {
		if opts.ToMs, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "toMs must be an integer")
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}
	opts.Filter = q.Get("filter")

	recs, err := s.deps.Tracking.Search(tenantID, opts)
	if err != nil {
		// CEL compile errors are the caller's problem
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": recs, "count": len(recs)})
}

type workflowSubmitReq struct {
	WorkflowType string          `json:"workflowType"`
	TenantID     string          `json:"tenantId"`
	Input        json.RawMessage `json:"input"`
}

func (s *Server) handleWorkflowSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req workflowSubmitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.WorkflowType == "" || req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "workflowType and tenantId required")
		return
	}
	id, err := s.deps.Workflows.Submit(r.Context(), req.WorkflowType, req.TenantID, req.Input)
	if err != nil {
		if errors.Is(err, workflow.ErrUnknownWorkflow) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("workflow submitted",
		logpkg.Str("workflow_id", id),
		logpkg.Str("workflow_type", req.WorkflowType),
		logpkg.Str("tenant", req.TenantID))
	writeJSON(w, http.StatusAccepted, map[string]string{"workflowId": id})
}

func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("workflowId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "workflowId required")
		return
	}
	exec, err := s.deps.Workflows.Get(id)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown workflowId")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

type workflowCancelReq struct {
	WorkflowID string `json:"workflowId"`
}

func (s *Server) handleWorkflowCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req workflowCancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkflowID == "" {
		writeError(w, http.StatusBadRequest, "workflowId required")
		return
	}
	err := s.deps.Workflows.Cancel(req.WorkflowID)
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown workflowId")
	case errors.Is(err, workflow.ErrTerminalState):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancel_requested"})
	}
}
