package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"clipforge/pkg/models"
)

// Runner executes jobs synchronously. *jobs.Runner satisfies it.
type Runner interface {
	Compose(ctx context.Context, job models.ComposeJob) models.RunResult
	Trim(ctx context.Context, job models.TrimJob) models.RunResult
	Export(ctx context.Context, job models.ExportJob) models.RunResult
	Render(ctx context.Context, job models.RenderJob) models.RunResult
}

// HealthFunc produces the /v1/health report.
type HealthFunc func(ctx context.Context) (models.HealthReport, error)

// JobServer exposes the runner over HTTP. Each request blocks until its
// ffmpeg run finishes; there is no queue.
type JobServer struct {
	addr   string
	runner Runner
	health HealthFunc
}

func NewJobServer(addr string, runner Runner, health HealthFunc) *JobServer {
	return &JobServer{
		addr:   addr,
		runner: runner,
		health: health,
	}
}

// Handler returns the routes without binding a port.
func (s *JobServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/compose", s.handleCompose)
	mux.HandleFunc("/v1/trim", s.handleTrim)
	mux.HandleFunc("/v1/export", s.handleExport)
	mux.HandleFunc("/v1/render", s.handleRender)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

// Start listens until ctx is cancelled, then drains in-flight requests.
func (s *JobServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening for jobs on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down job server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *JobServer) handleCompose(w http.ResponseWriter, r *http.Request) {
	var job models.ComposeJob
	if !decodeJob(w, r, &job) {
		return
	}
	writeResult(w, s.runner.Compose(r.Context(), job))
}

func (s *JobServer) handleTrim(w http.ResponseWriter, r *http.Request) {
	var job models.TrimJob
	if !decodeJob(w, r, &job) {
		return
	}
	writeResult(w, s.runner.Trim(r.Context(), job))
}

func (s *JobServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var job models.ExportJob
	if !decodeJob(w, r, &job) {
		return
	}
	writeResult(w, s.runner.Export(r.Context(), job))
}

func (s *JobServer) handleRender(w http.ResponseWriter, r *http.Request) {
	var job models.RenderJob
	if !decodeJob(w, r, &job) {
		return
	}
	writeResult(w, s.runner.Render(r.Context(), job))
}

func (s *JobServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report, err := s.health(r.Context())
	if err != nil {
		log.WithError(err).Warn("Health check incomplete.")
		writeJSON(w, http.StatusServiceUnavailable, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeJob(w http.ResponseWriter, r *http.Request, job any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(job); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// writeResult answers 200 when ffmpeg succeeded and 422 otherwise.
func writeResult(w http.ResponseWriter, res models.RunResult) {
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write response.")
	}
}
