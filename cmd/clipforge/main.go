package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"clipforge/internal/config"
	"clipforge/internal/fetch"
	"clipforge/internal/jobs"
	"clipforge/internal/monitor"
	"clipforge/internal/server"
	"clipforge/internal/transcoder"
	"clipforge/pkg/models"
)

// Exit statuses.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `usage: clipforge <command> [flags]

commands:
  compose   overlay text, music and images onto a video
  trim      cut a time range out of a video
  render    short-video render: framing, color grade, captions, audio
  export    rescale a video to a preset (480p, 720p, 1080p, 2K, 4K)
  probe     print duration and frame size of a media file
  info      print host and ffmpeg capabilities
  serve     run the HTTP job API
`

func init() {
	log.SetOutput(os.Stderr)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return exitUsage
	}

	// 1. Setup Context for Graceful Shutdown
	// We catch SIGINT (Ctrl+C) and SIGTERM (OS shutdown).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)
	go func() {
		select {
		case <-stop:
			log.Info("Signal received, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "compose":
		err = runCompose(ctx, rest, stdout)
	case "trim":
		err = runTrim(ctx, rest, stdout)
	case "render":
		err = runRender(ctx, rest, stdout)
	case "export":
		err = runExport(ctx, rest, stdout)
	case "probe":
		err = runProbe(ctx, rest, stdout)
	case "info":
		err = runInfo(ctx, rest, stdout)
	case "serve":
		err = runServe(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}

	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr), errors.Is(err, pflag.ErrHelp):
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		return exitUsage
	case errors.Is(err, errRunFailed):
		return exitFailure
	default:
		log.Error(err)
		return exitFailure
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

var errRunFailed = errors.New("ffmpeg run failed")

// app holds what every subcommand needs once config is loaded.
type app struct {
	cfg    *config.Config
	engine *transcoder.Engine
	mon    *monitor.SystemMonitor
}

// newFlagSet adds the config flags shared by all subcommands.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cfgPath := fs.String("config", "config.yml", "path to YAML config")
	fs.String("ffmpeg-path", "", "ffmpeg binary (default: $PATH lookup)")
	fs.String("ffprobe-path", "", "ffprobe binary (default: $PATH lookup)")
	fs.Int("timeout-seconds", 0, "kill ffmpeg after this many seconds (0 = never)")
	fs.String("temp-dir", "", "directory for downloaded assets")
	fs.String("log-level", "info", "trace, debug, info, warn, error")
	fs.String("log-format", "text", "text or json")
	return fs, cfgPath
}

func setup(fs *pflag.FlagSet, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath, fs)
	if err != nil {
		return nil, err
	}
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}

	engine, err := transcoder.NewEngine(transcoder.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Timeout:     cfg.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transcoder engine: %w", err)
	}

	return &app{
		cfg:    cfg,
		engine: engine,
		mon:    monitor.NewSystemMonitor(200 * time.Millisecond),
	}, nil
}

func configureLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return usageError(fmt.Sprintf("invalid log level %q", cfg.LogLevel))
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return usageError(fmt.Sprintf("invalid log format %q", cfg.LogFormat))
	}
	return nil
}

func (a *app) runner() *jobs.Runner {
	fetcher := fetch.NewClient(fetch.Options{
		RetryMax:     a.cfg.FetchRetryMax,
		RetryWaitMin: time.Duration(a.cfg.FetchRetryWaitMinMS) * time.Millisecond,
		RetryWaitMax: time.Duration(a.cfg.FetchRetryWaitMaxMS) * time.Millisecond,
	})
	return jobs.NewRunner(a.engine, fetcher, a.mon, a.cfg.TempDir)
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError(fmt.Sprintf("%s: %v", fs.Name(), err))
	}
	return nil
}

func requireFlags(fs *pflag.FlagSet, names ...string) error {
	var missing []string
	for _, n := range names {
		if !fs.Changed(n) {
			missing = append(missing, "--"+n)
		}
	}
	if len(missing) > 0 {
		return usageError(fmt.Sprintf("%s: missing required flags %s", fs.Name(), strings.Join(missing, ", ")))
	}
	return nil
}

func runCompose(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("compose")
	var job models.ComposeJob
	fs.StringVarP(&job.Input, "input", "i", "", "input video (path or URL)")
	fs.StringVarP(&job.Output, "output", "o", "", "output video, overwritten if present")
	fs.StringVar(&job.Resolution, "resolution", "1920:1080", "W:H or a preset such as 720p")
	fs.StringVar(&job.AspectRatio, "aspect-ratio", "16:9", "target aspect ratio")
	fs.StringVar(&job.BackgroundMusic, "music", "", "background music (path or URL)")
	fs.Float64Var(&job.Volume, "volume", 1.0, "background music volume multiplier")
	fs.StringVar(&job.FontFile, "font", "", "font file for the text overlay")
	fs.IntVar(&job.FontSize, "font-size", 24, "text overlay font size")
	fs.StringVar(&job.TextColor, "color", "white", "text overlay color")
	fs.StringArrayVar(&job.Overlays, "overlay", nil, "overlay image (repeatable, path or URL)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlags(fs, "input", "output", "font"); err != nil {
		return err
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}
	return report(stdout, a.runner().Compose(ctx, job))
}

func runTrim(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("trim")
	var job models.TrimJob
	fs.StringVarP(&job.Input, "input", "i", "", "input video (path or URL)")
	fs.StringVarP(&job.Output, "output", "o", "", "output video, overwritten if present")
	fs.Float64Var(&job.Start, "start", 0, "start time in seconds")
	fs.Float64Var(&job.End, "end", 0, "end time in seconds")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlags(fs, "input", "output", "end"); err != nil {
		return err
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}
	return report(stdout, a.runner().Trim(ctx, job))
}

func runRender(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("render")
	job, subsPath, err := parseRenderFlags(fs, args)
	if err != nil {
		return err
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}
	if subsPath != "" {
		if job.Subtitles, err = loadSubtitles(subsPath); err != nil {
			return err
		}
	}
	return report(stdout, a.runner().Render(ctx, job))
}

// parseRenderFlags fills a RenderJob from flags. Volume is only set when
// given, so an omitted --volume leaves the audio level untouched.
func parseRenderFlags(fs *pflag.FlagSet, args []string) (job models.RenderJob, subsPath string, err error) {
	fs.StringVarP(&job.Input, "input", "i", "", "input video (path or URL)")
	fs.StringVarP(&job.Output, "output", "o", "", "output video, overwritten if present")
	fs.StringVar(&job.AspectRatio, "aspect-ratio", "16:9", "9:16, 1:1 or 16:9")
	fs.StringVar(&job.Resolution, "resolution", "", "preset (480p, 720p, 1080p, 2K, 4K), overrides --aspect-ratio")
	fs.IntVar(&job.FPS, "fps", 0, "output frame rate (0 keeps the source rate)")
	fs.StringVar(&job.ColorFilter, "color-filter", "", "Bright, Contrast, Vintage or Cinematic")
	fs.StringVar(&subsPath, "subtitles", "", `JSON file of [{"start":0,"end":2,"text":"..."}]`)
	fs.StringVar(&job.FontFile, "font", "", "font file for captions")
	fs.IntVar(&job.FontSize, "font-size", 24, "caption font size")
	fs.StringVar(&job.TextColor, "color", "white", "caption color")
	fs.StringVar(&job.BackgroundMusic, "music", "", "background music (path or URL)")
	volume := fs.Float64("volume", 1.0, "audio volume multiplier")
	fs.StringVar(&job.AudioEffect, "audio-effect", "", "Echo or Reverb")
	fs.StringVar(&job.Duration, "duration", "Auto", `Auto, "<30s", "30s - 60s", "60s - 90s" or "90s - 3min"`)
	if err = parseFlags(fs, args); err != nil {
		return job, "", err
	}
	if err = requireFlags(fs, "input", "output"); err != nil {
		return job, "", err
	}
	if fs.Changed("volume") {
		job.Volume = volume
	}
	return job, subsPath, nil
}

func loadSubtitles(path string) ([]models.SubtitleCue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitles: %w", err)
	}
	var cues []models.SubtitleCue
	if err := json.Unmarshal(data, &cues); err != nil {
		return nil, fmt.Errorf("failed to decode subtitles %s: %w", path, err)
	}
	return cues, nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("export")
	var job models.ExportJob
	fs.StringVarP(&job.Input, "input", "i", "", "input video (path or URL)")
	fs.StringVarP(&job.Output, "output", "o", "", "output video, overwritten if present")
	fs.StringVar(&job.Preset, "preset", "1080p", "480p, 720p, 1080p, 2K or 4K")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlags(fs, "input", "output"); err != nil {
		return err
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}
	return report(stdout, a.runner().Export(ctx, job))
}

func runProbe(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("probe")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("probe: expected exactly one file")
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}
	info, err := a.engine.Probe(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return writeJSON(stdout, struct {
		transcoder.MediaInfo
		Orientation string `json:"orientation"`
	}{info, info.Orientation()})
}

func runInfo(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("info")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}
	health, err := a.mon.Health(ctx, a.engine)
	if err != nil {
		return err
	}
	health.FFmpeg = a.engine.FFmpegPath
	return writeJSON(stdout, health)
}

func runServe(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("serve")
	fs.String("listen-addr", ":8080", "address for the HTTP API")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := setup(fs, *cfgPath)
	if err != nil {
		return err
	}

	health := func(ctx context.Context) (models.HealthReport, error) {
		report, err := a.mon.Health(ctx, a.engine)
		report.FFmpeg = a.engine.FFmpegPath
		return report, err
	}
	log.WithField("ffmpeg", a.engine.FFmpegPath).Info("Starting clipforge job server.")
	return server.NewJobServer(a.cfg.ListenAddr, a.runner(), health).Start(ctx)
}

// report prints the result as JSON and turns a failed run into errRunFailed.
func report(stdout io.Writer, res models.RunResult) error {
	if err := writeJSON(stdout, res); err != nil {
		return err
	}
	if !res.OK {
		return errRunFailed
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
