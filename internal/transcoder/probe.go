package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo is what Probe learns about a file.
type MediaInfo struct {
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// Orientations reported by MediaInfo.Orientation.
const (
	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"
	OrientationSquare    = "square"
	OrientationOther     = "other"
)

const orientationTolerance = 0.1

// Orientation classifies the frame as 16:9, 9:16, 1:1 or anything else.
func (m MediaInfo) Orientation() string {
	if m.Width == 0 || m.Height == 0 {
		return OrientationOther
	}
	ratio := float64(m.Width) / float64(m.Height)
	switch {
	case math.Abs(ratio-16.0/9.0) <= orientationTolerance:
		return OrientationLandscape
	case math.Abs(ratio-9.0/16.0) <= orientationTolerance:
		return OrientationPortrait
	case math.Abs(ratio-1) <= orientationTolerance:
		return OrientationSquare
	default:
		return OrientationOther
	}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe uses ffprobe to read duration and frame size.
func (e *Engine) Probe(ctx context.Context, path string) (MediaInfo, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration",
		"-show_streams",
		path,
	}
	cmd := exec.CommandContext(ctx, e.FFprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	var info MediaInfo
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("invalid duration %q: %w", out.Format.Duration, err)
		}
		info.DurationSec = d
	}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width, info.Height = s.Width, s.Height
			break
		}
	}
	if info.DurationSec == 0 && info.Width == 0 {
		return MediaInfo{}, errors.New("ffprobe reported no duration and no video stream")
	}
	return info, nil
}

// Capabilities asks ffmpeg which hardware encoders it was built with.
// Software encoding is always listed.
func (e *Engine) Capabilities(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.FFmpegPath, "-hide_banner", "-encoders")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg check failed: %w", err)
	}
	return parseEncoders(out.String()), nil
}

func parseEncoders(output string) []string {
	caps := []string{CodecVideo}
	for _, c := range []string{CodecNVENC, CodecQSV, CodecVAAPI, CodecVideoToolbox, CodecV4L2M2M} {
		if strings.Contains(output, c) {
			caps = append(caps, c)
		}
	}
	return caps
}
