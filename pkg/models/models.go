package models

// ComposeJob is the payload for POST /v1/compose. Any of Input,
// BackgroundMusic and Overlays may be http(s) URLs; they are downloaded
// before ffmpeg runs.
type ComposeJob struct {
	Input           string   `json:"input"`
	Output          string   `json:"output"`
	// Resolution is W:H, e.g. "1280:720", used verbatim. A preset name
	// such as "720p" is expanded to its W:H before the command is built,
	// so RunResult.Command shows "1280:720", not "720p".
	Resolution      string   `json:"resolution"`
	AspectRatio     string   `json:"aspect_ratio,omitempty"` // e.g. "16:9"
	BackgroundMusic string   `json:"background_music,omitempty"`
	Volume          float64  `json:"volume"` // 0.0 to 2.0 in practice
	FontFile        string   `json:"font_file"`
	FontSize        int      `json:"font_size"`
	TextColor       string   `json:"text_color"` // e.g. "white"
	Overlays        []string `json:"overlays,omitempty"`
}

// TrimJob is the payload for POST /v1/trim. Times are in seconds.
type TrimJob struct {
	Input  string  `json:"input"`
	Output string  `json:"output"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// ExportJob is the payload for POST /v1/export.
type ExportJob struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Preset string `json:"preset"` // "480p", "720p", "1080p", "2K", "4K"
}

// SubtitleCue is a caption burned in between Start and End seconds.
type SubtitleCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// RenderJob is the payload for POST /v1/render, the short-video pipeline.
type RenderJob struct {
	Input           string        `json:"input"`
	Output          string        `json:"output"`
	AspectRatio     string        `json:"aspect_ratio,omitempty"` // "9:16", "1:1", "16:9"
	Resolution      string        `json:"resolution,omitempty"`   // preset, overrides aspect_ratio
	FPS             int           `json:"fps,omitempty"`
	ColorFilter     string        `json:"color_filter,omitempty"` // "Bright", "Contrast", "Vintage", "Cinematic"
	Subtitles       []SubtitleCue `json:"subtitles,omitempty"`
	FontFile        string        `json:"font_file,omitempty"`
	FontSize        int           `json:"font_size,omitempty"`
	TextColor       string        `json:"text_color,omitempty"`
	BackgroundMusic string        `json:"background_music,omitempty"`
	// Volume defaults to 1 (unchanged) when omitted.
	Volume      *float64 `json:"volume,omitempty"`
	AudioEffect string   `json:"audio_effect,omitempty"` // "Echo", "Reverb"
	Duration    string   `json:"duration,omitempty"`     // "Auto", "<30s", "30s - 60s", "60s - 90s", "90s - 3min"
}

// RunResult reports one finished ffmpeg run.
type RunResult struct {
	JobID     string `json:"job_id"`
	OK        bool   `json:"ok"`
	ExitCode  int    `json:"exit_code"`
	TimedOut  bool   `json:"timed_out,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Command   string `json:"command,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	ErrorMsg  string `json:"error_message,omitempty"`
}

// HardwareStats is a point-in-time host snapshot.
type HardwareStats struct {
	// CPU usage percentage (0.0 to 100.0)
	CPUPercent float64 `json:"cpu_percent"`

	RAMPercent        float64 `json:"ram_percent"`
	RAMAvailableBytes uint64  `json:"ram_available_bytes"`

	// Computed flag: CPU > 80% or RAM > 90%.
	IsBusy bool `json:"is_busy"`
}

// StaticHardware defines specs that don't change while the process runs.
type StaticHardware struct {
	CPUModel             string   `json:"cpu_model"`
	TotalThreads         int      `json:"total_threads"`
	HardwareAcceleration []string `json:"hardware_acceleration"` // e.g. ["h264_nvenc"]
}

// HealthReport is served on GET /v1/health and printed by `clipforge info`.
type HealthReport struct {
	Status string         `json:"status"` // "IDLE", "BUSY"
	Specs  StaticHardware `json:"specs"`
	Stats  HardwareStats  `json:"stats"`
	FFmpeg string         `json:"ffmpeg_path"`
}
