package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a download job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFetching  Status = "fetching"
	StatusFetched   Status = "fetched"
	StatusMerging   Status = "merging"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Kind selects the output container for a job.
type Kind string

const (
	KindMP4 Kind = "mp4"
	KindMP3 Kind = "mp3"
)

// ParseKind converts a client-supplied string into a known Kind. Empty input
// defaults to mp4, matching the API contract.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "mp4":
		return KindMP4, true
	case "mp3":
		return KindMP3, true
	default:
		return "", false
	}
}

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusFetched,
	StatusMerging,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching: {},
	StatusMerging:  {},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// Job represents a download job persisted in SQLite.
type Job struct {
	ID              int64
	Token           string
	URL             string
	Kind            Kind
	FormatID        string
	AudioLangs      []string
	SubtitleLangs   []string
	Title           string
	WorkDir         string
	OutputFile      string
	DownloadURL     string
	Status          Status
	ErrorMessage    string
	Attempts        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// SetProgress updates all three progress fields atomically.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}

// OutputExt returns the file extension for the job's output container.
func (j Job) OutputExt() string {
	if j.Kind == KindMP3 {
		return "mp3"
	}
	return "mp4"
}
