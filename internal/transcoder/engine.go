package transcoder

import (
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Codecs used for every re-encode. Compose, trim and export never pick a
// hardware encoder; the hardware constants are only reported by Capabilities.
const (
	CodecVideo = "libx264"
	CodecAudio = "aac"

	CodecNVENC        = "h264_nvenc"
	CodecQSV          = "h264_qsv"
	CodecVAAPI        = "h264_vaapi"
	CodecVideoToolbox = "h264_videotoolbox"
	CodecV4L2M2M      = "h264_v4l2m2m"
)

// ErrBinaryNotFound is returned by NewEngine when ffmpeg cannot be located.
var ErrBinaryNotFound = errors.New("ffmpeg binary not found")

// Options configures an Engine. Empty paths are resolved on $PATH.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	// Timeout bounds a single ffmpeg run. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
}

// Engine runs ffmpeg and ffprobe on the local host.
type Engine struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// NewEngine locates the binaries and returns a ready Engine.
// A missing ffprobe is not fatal; Probe reports it when called.
func NewEngine(opts Options) (*Engine, error) {
	// 1. Locate ffmpeg, either the configured path or the one on $PATH.
	name := opts.FFmpegPath
	if name == "" {
		name = "ffmpeg"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
	}

	// 2. ffprobe usually sits next to ffmpeg.
	probeName := opts.FFprobePath
	if probeName == "" {
		probeName = "ffprobe"
	}
	probePath, err := exec.LookPath(probeName)
	if err != nil {
		probePath = probeName
	}

	return &Engine{
		FFmpegPath:  path,
		FFprobePath: probePath,
		Timeout:     opts.Timeout,
	}, nil
}
