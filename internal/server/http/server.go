package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/acks"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/publish"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/workflow"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// Deps are the services the server fronts.
type Deps struct {
	Runtime   *runtime.Runtime
	Tracking  *tracking.Store
	Publisher *publish.Publisher
	Acks      *acks.Submitter
	Workflows *workflow.Orchestrator
}

// Server is the JSON HTTP front end.
type Server struct {
	deps   Deps
	logger logpkg.Logger
	srv    *http.Server
	lis    net.Listener
}

// New builds the Server and its route table.
func New(deps Deps, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("http"))
	}
	mux := http.NewServeMux()
	s := &Server{deps: deps, logger: logger, srv: &http.Server{Handler: cors(mux)}}

	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/tenants/create", s.handleTenantCreate)
	mux.HandleFunc("/v1/events/publish", s.handlePublish)
	mux.HandleFunc("/v1/events/status", s.handleEventStatus)
	mux.HandleFunc("/v1/events/search", s.handleEventSearch)
	mux.HandleFunc("/v1/acks/submit", s.handleAckSubmit)
	mux.HandleFunc("/v1/sync/health", s.handleSyncHealth)
	mux.HandleFunc("/v1/workflows/submit", s.handleWorkflowSubmit)
	mux.HandleFunc("/v1/workflows/status", s.handleWorkflowStatus)
	mux.HandleFunc("/v1/workflows/cancel", s.handleWorkflowCancel)
	mux.Handle("/metrics", promhttp.Handler())
	return s
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the bound address once listening.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Close releases the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
