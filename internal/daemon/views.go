package daemon

import (
	"time"

	"spool/internal/queue"
)

type jobView struct {
	ID              int64    `json:"id"`
	JobID           string   `json:"job_id"`
	URL             string   `json:"url"`
	Kind            string   `json:"kind"`
	FormatID        string   `json:"format_id,omitempty"`
	AudioLangs      []string `json:"audio_langs,omitempty"`
	SubtitleLangs   []string `json:"subtitle_langs,omitempty"`
	Title           string   `json:"title,omitempty"`
	Status          string   `json:"status"`
	ErrorMessage    string   `json:"error,omitempty"`
	Attempts        int      `json:"attempts"`
	ProgressStage   string   `json:"progress_stage,omitempty"`
	ProgressPercent float64  `json:"progress"`
	ProgressMessage string   `json:"progress_message,omitempty"`
	OutputFile      string   `json:"output_file,omitempty"`
	DownloadURL     string   `json:"download_url,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type jobListResponse struct {
	Jobs []jobView `json:"jobs"`
}

type jobResponse struct {
	Job jobView `json:"job"`
}

func newJobView(job *queue.Job) jobView {
	return jobView{
		ID:              job.ID,
		JobID:           job.Token,
		URL:             job.URL,
		Kind:            string(job.Kind),
		FormatID:        job.FormatID,
		AudioLangs:      job.AudioLangs,
		SubtitleLangs:   job.SubtitleLangs,
		Title:           job.Title,
		Status:          string(job.Status),
		ErrorMessage:    job.ErrorMessage,
		Attempts:        job.Attempts,
		ProgressStage:   job.ProgressStage,
		ProgressPercent: job.ProgressPercent,
		ProgressMessage: job.ProgressMessage,
		OutputFile:      job.OutputFile,
		DownloadURL:     job.DownloadURL,
		CreatedAt:       job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type stageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type dependencyView struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type statusResponse struct {
	Running      bool                 `json:"running"`
	Bind         string               `json:"bind"`
	QueueStats   map[string]int       `json:"queue_stats"`
	StageHealth  []stageHealthView    `json:"stage_health"`
	Dependencies []dependencyView     `json:"dependencies"`
	LastError    string               `json:"last_error,omitempty"`
	LastJob      *jobView             `json:"last_job,omitempty"`
	QueueDBPath  string               `json:"queue_db_path"`
	LockFilePath string               `json:"lock_file_path"`
}

func statusView(status Status) statusResponse {
	stats := make(map[string]int, len(status.Workflow.QueueStats))
	for key, value := range status.Workflow.QueueStats {
		stats[string(key)] = value
	}
	health := make([]stageHealthView, 0, len(status.Workflow.StageHealth))
	for _, item := range status.Workflow.StageHealth {
		health = append(health, stageHealthView{Name: item.Name, Ready: item.Ready, Detail: item.Detail})
	}
	depViews := make([]dependencyView, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		depViews = append(depViews, dependencyView{
			Name:      dep.Name,
			Command:   dep.Command,
			Available: dep.Available,
			Path:      dep.Path,
			Detail:    dep.Detail,
		})
	}
	resp := statusResponse{
		Running:      status.Running,
		Bind:         status.Bind,
		QueueStats:   stats,
		StageHealth:  health,
		Dependencies: depViews,
		LastError:    status.Workflow.LastError,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
	}
	if status.Workflow.LastJob != nil {
		view := newJobView(status.Workflow.LastJob)
		resp.LastJob = &view
	}
	return resp
}
