package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"spool/internal/analysis"
	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/queue"
)

const serviceVersion = "0.1.0"

type apiServer struct {
	bind      string
	publicURL string
	logger    *slog.Logger
	daemon    *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, errors.New("server bind address not configured")
	}

	srv := &apiServer{
		bind:      bind,
		publicURL: strings.TrimRight(strings.TrimSpace(cfg.Server.PublicBaseURL), "/"),
		logger:    logger,
		daemon:    d,
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(cfg.Server.APIToken, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleRoot)
	mux.HandleFunc("/api/analyze", srv.handleAnalyze)
	mux.HandleFunc("/api/download", srv.handleDownload)
	mux.HandleFunc("/api/progress/", srv.handleProgress)
	mux.HandleFunc("/files/", srv.handleFile)
	mux.HandleFunc("/downloads/", srv.handleFile)
	mux.HandleFunc("/api/status", auth(srv.handleStatus))
	mux.HandleFunc("/api/jobs", auth(srv.handleJobs))
	mux.HandleFunc("/api/jobs/", auth(srv.handleJobActions))

	srv.server = &http.Server{
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// downloadRequest accepts both the current field names and the names the
// original frontend sends (type/quality/audio/subtitle).
type downloadRequest struct {
	URL           string   `json:"url"`
	Kind          string   `json:"kind"`
	LegacyKind    string   `json:"type"`
	FormatID      string   `json:"format_id"`
	LegacyFormat  string   `json:"quality"`
	AudioLangs    []string `json:"audio_langs"`
	LegacyAudio   []string `json:"audio"`
	SubtitleLangs []string `json:"subtitle_langs"`
	LegacySubs    []string `json:"subtitle"`
}

func (r downloadRequest) kind() string {
	if strings.TrimSpace(r.Kind) != "" {
		return r.Kind
	}
	return r.LegacyKind
}

func (r downloadRequest) formatID() string {
	if strings.TrimSpace(r.FormatID) != "" {
		return r.FormatID
	}
	return r.LegacyFormat
}

func (r downloadRequest) audio() []string {
	if len(r.AudioLangs) > 0 {
		return r.AudioLangs
	}
	return r.LegacyAudio
}

func (r downloadRequest) subtitles() []string {
	if len(r.SubtitleLangs) > 0 {
		return r.SubtitleLangs
	}
	return r.LegacySubs
}

type downloadResponse struct {
	JobID string `json:"job_id"`
}

type progressResponse struct {
	JobID       string  `json:"job_id"`
	Status      string  `json:"status"`
	Percentage  float64 `json:"percentage"`
	Message     string  `json:"message,omitempty"`
	Title       string  `json:"title,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	DownloadURL string  `json:"download_url,omitempty"`
	Error       string  `json:"error,omitempty"`
	UpdatedAt   string  `json:"updated_at"`
}

func (s *apiServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": "spool",
		"status":  "online",
		"version": serviceVersion,
	})
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	info, err := s.daemon.Analyze(r.Context(), url)
	if err != nil {
		s.log().Warn("analyze failed", logging.String("url", url), logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not analyze URL")
		return
	}
	s.writeJSON(w, http.StatusOK, analysis.BuildSummary(info))
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	kind, ok := queue.ParseKind(req.kind())
	if !ok {
		s.writeError(w, http.StatusBadRequest, "kind must be mp4 or mp3")
		return
	}

	job, err := s.daemon.Enqueue(r.Context(), queue.NewJobParams{
		URL:           req.URL,
		Kind:          kind,
		FormatID:      req.formatID(),
		AudioLangs:    req.audio(),
		SubtitleLangs: req.subtitles(),
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, downloadResponse{JobID: job.Token})
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/api/progress/")
	if token == "" || strings.Contains(token, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.daemon.store.GetByToken(r.Context(), token)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := progressResponse{
		JobID:      job.Token,
		Status:     string(job.Status),
		Percentage: job.ProgressPercent,
		Message:    job.ProgressMessage,
		Title:      job.Title,
		UpdatedAt:  job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if job.Status == queue.StatusFailed {
		resp.Error = job.ErrorMessage
	}
	if job.Status == queue.StatusCompleted {
		resp.Filename = job.OutputFile
		resp.DownloadURL = s.publicDownloadURL(r, job.DownloadURL)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/files/")
	name = strings.TrimPrefix(name, "/downloads/")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	path := filepath.Join(s.daemon.cfg.Paths.DownloadDir, name)

	// Large media files can take far longer than the server write timeout
	// to stream, so this route opts out of it.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.log().Debug("clear write deadline failed", logging.Error(err))
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, statusView(status))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.daemon.ListQueue(r.Context(), statuses)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: views})
}

func (s *apiServer) handleJobActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	switch {
	case rest == "retry" && r.Method == http.MethodPost:
		s.handleRetry(w, r)
	case rest == "clear" && r.Method == http.MethodPost:
		s.handleClear(w, r)
	case rest == "reset" && r.Method == http.MethodPost:
		s.handleReset(w, r)
	case r.Method == http.MethodGet && rest != "" && !strings.Contains(rest, "/"):
		s.handleJobDescribe(w, r, rest)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleJobDescribe(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse{Job: newJobView(job)})
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	count, err := s.daemon.RetryFailed(r.Context(), req.IDs)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"retried": count})
}

func (s *apiServer) handleClear(w http.ResponseWriter, r *http.Request) {
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	var (
		count int64
		err   error
	)
	switch scope {
	case "", "completed":
		count, err = s.daemon.ClearCompleted(r.Context())
	case "failed":
		count, err = s.daemon.ClearFailed(r.Context())
	case "all":
		count, err = s.daemon.ClearQueue(r.Context())
	default:
		s.writeError(w, http.StatusBadRequest, "scope must be completed, failed, or all")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": count})
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	count, err := s.daemon.ResetStuck(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"reset": count})
}

// publicDownloadURL resolves the relative download path into something the
// caller can fetch, preferring the configured public base URL.
func (s *apiServer) publicDownloadURL(r *http.Request, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if s.publicURL != "" {
		return s.publicURL + path
	}
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return path
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + host + path
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
