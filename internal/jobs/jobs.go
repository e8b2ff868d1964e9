// Package jobs turns API/CLI job payloads into ffmpeg runs: it downloads
// remote assets, builds the command, executes it and reports the result.
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"clipforge/internal/transcoder"
	"clipforge/pkg/models"
)

// Executor runs a built ffmpeg command. *transcoder.Engine satisfies it.
type Executor interface {
	Execute(ctx context.Context, c transcoder.Command) transcoder.Result
}

// Localizer turns a possibly remote source into a local path.
type Localizer interface {
	Localize(ctx context.Context, src, destDir string) (string, error)
}

// StatsSource supplies the host snapshot logged before each run.
type StatsSource interface {
	GetStats(ctx context.Context) (models.HardwareStats, error)
}

// Runner executes jobs one at a time on the calling goroutine.
type Runner struct {
	exec    Executor
	fetcher Localizer
	stats   StatsSource
	tempDir string
}

// NewRunner wires a Runner. fetcher and stats may be nil; without a fetcher
// remote sources are passed to ffmpeg untouched.
func NewRunner(exec Executor, fetcher Localizer, stats StatsSource, tempDir string) *Runner {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Runner{exec: exec, fetcher: fetcher, stats: stats, tempDir: tempDir}
}

// Compose runs a composition job.
func (r *Runner) Compose(ctx context.Context, job models.ComposeJob) models.RunResult {
	return r.run(ctx, "compose", func(ctx context.Context, workDir string) (transcoder.Command, error) {
		var err error
		if job.Input, err = r.localize(ctx, job.Input, workDir); err != nil {
			return transcoder.Command{}, err
		}
		if job.BackgroundMusic != "" {
			if job.BackgroundMusic, err = r.localize(ctx, job.BackgroundMusic, workDir); err != nil {
				return transcoder.Command{}, err
			}
		}
		overlays := make([]string, len(job.Overlays))
		for i, o := range job.Overlays {
			if overlays[i], err = r.localize(ctx, o, workDir); err != nil {
				return transcoder.Command{}, err
			}
		}

		resolution, _ := transcoder.ResolvePreset(job.Resolution)
		return transcoder.BuildCompose(transcoder.ComposeOptions{
			Input:           job.Input,
			Output:          job.Output,
			Resolution:      resolution,
			AspectRatio:     job.AspectRatio,
			BackgroundMusic: job.BackgroundMusic,
			Volume:          job.Volume,
			FontFile:        job.FontFile,
			FontSize:        job.FontSize,
			TextColor:       job.TextColor,
			Overlays:        overlays,
		}), nil
	})
}

// Trim runs a trim job.
func (r *Runner) Trim(ctx context.Context, job models.TrimJob) models.RunResult {
	return r.run(ctx, "trim", func(ctx context.Context, workDir string) (transcoder.Command, error) {
		input, err := r.localize(ctx, job.Input, workDir)
		if err != nil {
			return transcoder.Command{}, err
		}
		return transcoder.BuildTrim(transcoder.TrimOptions{
			Input:  input,
			Output: job.Output,
			Start:  job.Start,
			End:    job.End,
		}), nil
	})
}

// Render runs a short-video render job.
func (r *Runner) Render(ctx context.Context, job models.RenderJob) models.RunResult {
	return r.run(ctx, "render", func(ctx context.Context, workDir string) (transcoder.Command, error) {
		input, err := r.localize(ctx, job.Input, workDir)
		if err != nil {
			return transcoder.Command{}, err
		}
		music := job.BackgroundMusic
		if music != "" {
			if music, err = r.localize(ctx, music, workDir); err != nil {
				return transcoder.Command{}, err
			}
		}

		volume := 1.0
		if job.Volume != nil {
			volume = *job.Volume
		}
		subs := make([]transcoder.Subtitle, len(job.Subtitles))
		for i, s := range job.Subtitles {
			subs[i] = transcoder.Subtitle{Start: s.Start, End: s.End, Text: s.Text}
		}

		return transcoder.BuildRender(transcoder.RenderOptions{
			Input:           input,
			Output:          job.Output,
			AspectRatio:     job.AspectRatio,
			Resolution:      job.Resolution,
			FPS:             job.FPS,
			ColorFilter:     job.ColorFilter,
			Subtitles:       subs,
			FontFile:        job.FontFile,
			FontSize:        job.FontSize,
			TextColor:       job.TextColor,
			BackgroundMusic: music,
			Volume:          volume,
			AudioEffect:     job.AudioEffect,
			Duration:        job.Duration,
		}), nil
	})
}

// Export runs a preset rescale job.
func (r *Runner) Export(ctx context.Context, job models.ExportJob) models.RunResult {
	return r.run(ctx, "export", func(ctx context.Context, workDir string) (transcoder.Command, error) {
		input, err := r.localize(ctx, job.Input, workDir)
		if err != nil {
			return transcoder.Command{}, err
		}
		return transcoder.BuildExport(transcoder.ExportOptions{
			Input:  input,
			Output: job.Output,
			Preset: job.Preset,
		}), nil
	})
}

type buildFunc func(ctx context.Context, workDir string) (transcoder.Command, error)

func (r *Runner) run(ctx context.Context, kind string, build buildFunc) models.RunResult {
	jobID := uuid.NewString()
	logger := log.WithFields(log.Fields{"job_id": jobID, "kind": kind})

	// Downloads for this job live here and go away with it.
	workDir := filepath.Join(r.tempDir, "clipforge-"+jobID)
	defer os.RemoveAll(workDir)

	cmd, err := build(ctx, workDir)
	if err != nil {
		logger.WithError(err).Error("Failed to prepare job.")
		return models.RunResult{JobID: jobID, ExitCode: -1, ErrorMsg: err.Error()}
	}

	if r.stats != nil {
		if s, err := r.stats.GetStats(ctx); err == nil {
			entry := logger.WithFields(log.Fields{"cpu_percent": s.CPUPercent, "ram_percent": s.RAMPercent})
			if s.IsBusy {
				entry.Warn("Host is busy; ffmpeg may run slowly.")
			} else {
				entry.Debug("Host stats before run.")
			}
		}
	}

	logger.WithField("command", cmd.String()).Info("Running job.")
	res := r.exec.Execute(ctx, cmd)
	return toRunResult(jobID, cmd, res)
}

func (r *Runner) localize(ctx context.Context, src, workDir string) (string, error) {
	if r.fetcher == nil {
		return src, nil
	}
	local, err := r.fetcher.Localize(ctx, src, workDir)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", src, err)
	}
	return local, nil
}

func toRunResult(jobID string, cmd transcoder.Command, res transcoder.Result) models.RunResult {
	out := models.RunResult{
		JobID:     jobID,
		OK:        res.OK(),
		ExitCode:  res.ExitCode,
		TimedOut:  res.TimedOut,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Command:   cmd.String(),
		Stderr:    res.Stderr,
	}
	if res.Err != nil {
		out.ErrorMsg = res.Err.Error()
	}
	return out
}
