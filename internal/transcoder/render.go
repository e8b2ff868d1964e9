package transcoder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Frame sizes picked from the aspect ratio when no resolution is given.
var aspectSizes = map[string]string{
	"9:16": "1080:1920",
	"1:1":  "1080:1080",
	"16:9": "1920:1080",
}

// Named color grades.
var colorFilters = map[string]string{
	"Bright":    "eq=brightness=0.1",
	"Contrast":  "eq=contrast=1.5",
	"Vintage":   "curves=vintage",
	"Cinematic": "colorbalance=rs=0.1:bs=-0.1",
}

// Named audio effects.
var audioEffects = map[string]string{
	"Echo":   "aecho=0.8:0.9:1000:0.3",
	"Reverb": "reverb=50:0.5:0.5:0.5:0.5:0.5:0.5",
}

// Duration buckets, in seconds. DurationAuto keeps the full length and any
// unknown bucket caps at three minutes.
const DurationAuto = "Auto"

var durationBuckets = map[string]int{
	"<30s":      30,
	"30s - 60s": 60,
	"60s - 90s": 90,
}

const maxDurationSec = 180

// Subtitle is a caption shown between Start and End seconds.
type Subtitle struct {
	Start float64
	End   float64
	Text  string
}

// RenderOptions describes a short-video render.
type RenderOptions struct {
	Input  string
	Output string

	// AspectRatio picks the frame size: "9:16", "1:1", anything else 16:9.
	AspectRatio string
	// Resolution, when set, overrides AspectRatio. Presets from
	// ResolvePreset; unknown names fall back to 1080p.
	Resolution string
	FPS        int // 0 keeps the source rate

	ColorFilter string // "Bright", "Contrast", "Vintage", "Cinematic"

	Subtitles []Subtitle
	FontFile  string
	FontSize  int
	TextColor string

	BackgroundMusic string
	Volume          float64 // 1 leaves the level untouched
	AudioEffect     string  // "Echo", "Reverb"

	Duration string // DurationAuto or a bucket such as "30s - 60s"
}

// BuildRender assembles the ffmpeg arguments for a short-video render.
func BuildRender(opts RenderOptions) Command {
	var c Command
	c.add("-i", opts.Input)

	audio := audioChain(opts)
	if opts.BackgroundMusic != "" {
		// The mix output feeds the rest of the audio chain, so everything
		// goes into one graph instead of a separate -af.
		graph := "[0:a][1:a]amix=inputs=2:duration=first:dropout_transition=2"
		if audio != "" {
			graph += "," + audio
		}
		c.add("-i", opts.BackgroundMusic, "-filter_complex", graph)
	}

	c.add("-vf", strings.Join(videoChain(opts), ","))

	if opts.FPS > 0 {
		c.add("-r", strconv.Itoa(opts.FPS))
	}
	if opts.BackgroundMusic == "" && audio != "" {
		c.add("-af", audio)
	}
	if sec, ok := durationLimit(opts.Duration); ok {
		c.add("-t", strconv.Itoa(sec))
	}

	c.add("-y", opts.Output)
	return c
}

// RenderFrameSize returns the W:H a render targets.
func RenderFrameSize(aspectRatio, resolution string) string {
	if resolution != "" {
		if size, ok := ResolvePreset(resolution); ok {
			return size
		}
		return presets["1080p"]
	}
	if size, ok := aspectSizes[aspectRatio]; ok {
		return size
	}
	return aspectSizes["16:9"]
}

func videoChain(opts RenderOptions) []string {
	filters := []string{scalePadFilter(RenderFrameSize(opts.AspectRatio, opts.Resolution))}
	if f, ok := colorFilters[opts.ColorFilter]; ok {
		filters = append(filters, f)
	}
	for _, sub := range opts.Subtitles {
		text := CleanSubtitleText(sub.Text)
		if text == "" {
			continue
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=h-text_h-50:box=1:boxcolor=black@0.5:boxborderw=5:enable='between(t,%s,%s)'",
			opts.FontFile, text, opts.TextColor, opts.FontSize, formatFloat(sub.Start), formatFloat(sub.End)))
	}
	return filters
}

func audioChain(opts RenderOptions) string {
	var filters []string
	if opts.Volume != 1 {
		filters = append(filters, "volume="+formatFloat(opts.Volume))
	}
	if f, ok := audioEffects[opts.AudioEffect]; ok {
		filters = append(filters, f)
	}
	return strings.Join(filters, ",")
}

func durationLimit(bucket string) (int, bool) {
	if bucket == "" || bucket == DurationAuto {
		return 0, false
	}
	if sec, ok := durationBuckets[bucket]; ok {
		return sec, true
	}
	return maxDurationSec, true
}

// CleanSubtitleText makes caption text safe inside a quoted drawtext value:
// single quotes are escaped, surrounding space trimmed and non-printable
// runes dropped.
func CleanSubtitleText(text string) string {
	text = strings.ReplaceAll(text, "'", `\'`)
	text = strings.TrimSpace(text)
	return strings.Map(func(r rune) rune {
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, text)
}
