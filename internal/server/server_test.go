package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipforge/pkg/models"
)

type stubRunner struct {
	ok      bool
	compose models.ComposeJob
	trim    models.TrimJob
	export  models.ExportJob
	render  models.RenderJob
}

func (s *stubRunner) result() models.RunResult {
	if s.ok {
		return models.RunResult{JobID: "job-1", OK: true}
	}
	return models.RunResult{JobID: "job-1", ExitCode: 1, Stderr: "Invalid argument"}
}

func (s *stubRunner) Compose(_ context.Context, job models.ComposeJob) models.RunResult {
	s.compose = job
	return s.result()
}

func (s *stubRunner) Trim(_ context.Context, job models.TrimJob) models.RunResult {
	s.trim = job
	return s.result()
}

func (s *stubRunner) Export(_ context.Context, job models.ExportJob) models.RunResult {
	s.export = job
	return s.result()
}

func (s *stubRunner) Render(_ context.Context, job models.RenderJob) models.RunResult {
	s.render = job
	return s.result()
}

func newTestServer(runner Runner, health HealthFunc) *httptest.Server {
	if health == nil {
		health = func(context.Context) (models.HealthReport, error) {
			return models.HealthReport{Status: "IDLE"}, nil
		}
	}
	return httptest.NewServer(NewJobServer(":0", runner, health).Handler())
}

func TestComposeEndpoint(t *testing.T) {
	runner := &stubRunner{ok: true}
	srv := newTestServer(runner, nil)
	defer srv.Close()

	body := `{"input":"in.mp4","output":"out.mp4","resolution":"1280:720","volume":0.5,"font_size":24,"overlays":["a.png","b.png"]}`
	resp, err := http.Post(srv.URL+"/v1/compose", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res models.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.JobID != "job-1" {
		t.Errorf("result = %+v", res)
	}
	if runner.compose.Volume != 0.5 || len(runner.compose.Overlays) != 2 || runner.compose.FontSize != 24 {
		t.Errorf("decoded job = %+v", runner.compose)
	}
}

func TestRenderEndpoint(t *testing.T) {
	runner := &stubRunner{ok: true}
	srv := newTestServer(runner, nil)
	defer srv.Close()

	body := `{"input":"in.mp4","output":"short.mp4","aspect_ratio":"9:16","color_filter":"Vintage",
		"subtitles":[{"start":0,"end":1.5,"text":"hello"}],"volume":0.7,"duration":"<30s"}`
	resp, err := http.Post(srv.URL+"/v1/render", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	job := runner.render
	if job.AspectRatio != "9:16" || job.ColorFilter != "Vintage" || job.Duration != "<30s" {
		t.Errorf("decoded job = %+v", job)
	}
	if len(job.Subtitles) != 1 || job.Subtitles[0].End != 1.5 {
		t.Errorf("subtitles = %+v", job.Subtitles)
	}
	if job.Volume == nil || *job.Volume != 0.7 {
		t.Errorf("volume = %v", job.Volume)
	}
}

func TestFailedRunIsUnprocessable(t *testing.T) {
	runner := &stubRunner{ok: false}
	srv := newTestServer(runner, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/trim", "application/json", strings.NewReader(`{"input":"in.mp4","output":"o.mp4","start":2,"end":5}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res models.RunResult
	json.NewDecoder(resp.Body).Decode(&res)
	if res.OK || res.ExitCode != 1 || res.Stderr == "" {
		t.Errorf("result = %+v", res)
	}
	if runner.trim.Start != 2 || runner.trim.End != 5 {
		t.Errorf("decoded job = %+v", runner.trim)
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(&stubRunner{ok: true}, nil)
	defer srv.Close()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/v1/export", "{", http.StatusBadRequest},
		{"get on job route", http.MethodGet, "/v1/compose", "", http.StatusMethodNotAllowed},
		{"get on render", http.MethodGet, "/v1/render", "", http.StatusMethodNotAllowed},
		{"post on health", http.MethodPost, "/v1/health", "", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/v1/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"healthy", nil, http.StatusOK},
		{"telemetry failure", errors.New("no /proc"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubRunner{}, func(context.Context) (models.HealthReport, error) {
				return models.HealthReport{Status: "BUSY"}, tt.err
			})
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/v1/health")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var report models.HealthReport
			json.NewDecoder(resp.Body).Decode(&report)
			if report.Status != "BUSY" {
				t.Errorf("Status = %q", report.Status)
			}
		})
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewJobServer("127.0.0.1:0", &stubRunner{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Start returned %v", err)
	}
}
