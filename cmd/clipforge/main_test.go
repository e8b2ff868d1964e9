package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"clipforge/internal/config"
	"clipforge/pkg/models"
)

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"render"}, exitUsage},
		{"help", []string{"help"}, exitOK},
		{"compose missing flags", []string{"compose", "--input", "in.mp4"}, exitUsage},
		{"trim missing end", []string{"trim", "-i", "in.mp4", "-o", "out.mp4"}, exitUsage},
		{"export missing output", []string{"export", "-i", "in.mp4"}, exitUsage},
		{"render missing output", []string{"render", "-i", "in.mp4"}, exitUsage},
		{"probe without file", []string{"probe"}, exitUsage},
		{"bad flag", []string{"trim", "--nope"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := run(tt.args, &out); got != tt.want {
				t.Errorf("run(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	if err := configureLogging(&config.Config{LogLevel: "debug", LogFormat: "json"}); err != nil {
		t.Fatalf("configureLogging: %v", err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v", log.GetLevel())
	}

	var uerr usageError
	if err := configureLogging(&config.Config{LogLevel: "loud"}); !errors.As(err, &uerr) {
		t.Errorf("bad level err = %v, want usageError", err)
	}
	if err := configureLogging(&config.Config{LogLevel: "info", LogFormat: "xml"}); !errors.As(err, &uerr) {
		t.Errorf("bad format err = %v, want usageError", err)
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	if err := report(&out, models.RunResult{JobID: "a", OK: true}); err != nil {
		t.Fatalf("report ok: %v", err)
	}
	var decoded models.RunResult
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil || decoded.JobID != "a" {
		t.Fatalf("decoded = %+v, err = %v", decoded, err)
	}

	out.Reset()
	err := report(&out, models.RunResult{JobID: "b", ExitCode: 1, Stderr: "boom"})
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("err = %v, want errRunFailed", err)
	}
	if !strings.Contains(out.String(), `"exit_code": 1`) {
		t.Errorf("output = %s", out.String())
	}
}

func TestParseRenderFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantVolume *float64
	}{
		{"volume omitted", []string{"-i", "in.mp4", "-o", "out.mp4"}, nil},
		{"volume given", []string{"-i", "in.mp4", "-o", "out.mp4", "--volume", "0.5"}, func() *float64 { v := 0.5; return &v }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _ := newFlagSet("render")
			job, _, err := parseRenderFlags(fs, append(tt.args, "--aspect-ratio", "9:16", "--duration", "<30s"))
			if err != nil {
				t.Fatalf("parseRenderFlags: %v", err)
			}
			if job.AspectRatio != "9:16" || job.Duration != "<30s" {
				t.Errorf("job = %+v", job)
			}
			switch {
			case tt.wantVolume == nil && job.Volume != nil:
				t.Errorf("Volume = %v, want nil", *job.Volume)
			case tt.wantVolume != nil && (job.Volume == nil || *job.Volume != *tt.wantVolume):
				t.Errorf("Volume = %v, want %v", job.Volume, *tt.wantVolume)
			}
		})
	}
}

func TestLoadSubtitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	data := `[{"start":0,"end":2.5,"text":"hello"},{"start":3,"end":4,"text":"bye"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cues, err := loadSubtitles(path)
	if err != nil {
		t.Fatalf("loadSubtitles: %v", err)
	}
	if len(cues) != 2 || cues[0].End != 2.5 || cues[1].Text != "bye" {
		t.Errorf("cues = %+v", cues)
	}

	if _, err := loadSubtitles(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
