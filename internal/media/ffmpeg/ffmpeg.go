package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// AudioTrack is a standalone audio input destined for the merged container.
type AudioTrack struct {
	Path     string
	Language string
}

// SubtitleTrack is a standalone subtitle input destined for the merged container.
type SubtitleTrack struct {
	Path     string
	Language string
}

// MuxSpec describes a merge of separately downloaded streams into one mp4.
type MuxSpec struct {
	VideoPath  string
	Audio      []AudioTrack
	Subtitles  []SubtitleTrack
	OutputPath string
}

// ExtractSpec describes a transcode of a downloaded source to a standalone mp3.
type ExtractSpec struct {
	SourcePath string
	OutputPath string
	// BitrateKbps selects the mp3 bitrate, e.g. "192".
	BitrateKbps string
}

// Executor runs the ffmpeg binary. Tests substitute a stub implementation.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
}

// Runner drives ffmpeg invocations for the merge and extract stages.
type Runner struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor substitutes the process executor, primarily for tests.
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithTimeout bounds each ffmpeg invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// NewRunner builds a Runner for the given ffmpeg binary.
func NewRunner(binary string, opts ...Option) *Runner {
	runner := &Runner{
		binary:  strings.TrimSpace(binary),
		timeout: 30 * time.Minute,
		exec:    commandExecutor{},
	}
	if runner.binary == "" {
		runner.binary = "ffmpeg"
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Mux merges the spec's inputs into a single mp4 container. The video stream
// is copied as-is, audio is re-encoded to AAC, and subtitles convert to
// mov_text with per-stream language metadata.
func (r *Runner) Mux(ctx context.Context, spec MuxSpec) error {
	args, err := BuildMuxArgs(spec)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.exec.Run(runCtx, r.binary, args); err != nil {
		return fmt.Errorf("ffmpeg mux: %w", err)
	}
	return nil
}

// ExtractAudio transcodes the spec's source into an mp3 file.
func (r *Runner) ExtractAudio(ctx context.Context, spec ExtractSpec) error {
	args, err := BuildExtractArgs(spec)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.exec.Run(runCtx, r.binary, args); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// BuildMuxArgs constructs the ffmpeg argument list for a merge. Input order is
// video first, then audio tracks, then subtitle tracks; map directives follow
// the same order so stream indexes inside the output stay predictable.
func BuildMuxArgs(spec MuxSpec) ([]string, error) {
	if strings.TrimSpace(spec.VideoPath) == "" {
		return nil, errors.New("mux: missing video input")
	}
	if strings.TrimSpace(spec.OutputPath) == "" {
		return nil, errors.New("mux: missing output path")
	}
	if len(spec.Audio) == 0 {
		return nil, errors.New("mux: at least one audio input required")
	}

	args := []string{"-y", "-i", spec.VideoPath}
	for _, track := range spec.Audio {
		if strings.TrimSpace(track.Path) == "" {
			return nil, errors.New("mux: audio input with empty path")
		}
		args = append(args, "-i", track.Path)
	}
	for _, track := range spec.Subtitles {
		if strings.TrimSpace(track.Path) == "" {
			return nil, errors.New("mux: subtitle input with empty path")
		}
		args = append(args, "-i", track.Path)
	}

	args = append(args, "-map", "0:v:0")
	for i := range spec.Audio {
		args = append(args, "-map", fmt.Sprintf("%d:a:0", i+1))
	}
	subtitleBase := 1 + len(spec.Audio)
	for i, track := range spec.Subtitles {
		args = append(args, "-map", fmt.Sprintf("%d:s:0", subtitleBase+i))
		if lang := strings.TrimSpace(track.Language); lang != "" {
			args = append(args, fmt.Sprintf("-metadata:s:s:%d", i), "language="+lang)
		}
	}
	for i, track := range spec.Audio {
		if lang := strings.TrimSpace(track.Language); lang != "" {
			args = append(args, fmt.Sprintf("-metadata:s:a:%d", i), "language="+lang)
		}
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "aac",
		"-c:s", "mov_text",
		spec.OutputPath,
	)
	return args, nil
}

// BuildExtractArgs constructs the ffmpeg argument list for an mp3 extract.
func BuildExtractArgs(spec ExtractSpec) ([]string, error) {
	if strings.TrimSpace(spec.SourcePath) == "" {
		return nil, errors.New("extract: missing source path")
	}
	if strings.TrimSpace(spec.OutputPath) == "" {
		return nil, errors.New("extract: missing output path")
	}
	bitrate := strings.TrimSpace(spec.BitrateKbps)
	if bitrate == "" {
		bitrate = "192"
	}
	return []string{
		"-y",
		"-i", spec.SourcePath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", bitrate + "k",
		spec.OutputPath,
	}, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if len(detail) > 2000 {
			detail = detail[len(detail)-2000:]
		}
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
