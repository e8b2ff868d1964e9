package transcoder

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderText is drawn at the frame center of every composed video.
const PlaceholderText = "Sample Text"

// Overlay geometry: every image is scaled to overlaySize and stacked down the
// left edge, overlayStride pixels apart.
const (
	overlaySize   = 50
	overlayLeft   = 10
	overlayTop    = 10
	overlayStride = 60
)

// ComposeOptions describes a composition run. String fields are inserted
// into the filter graph verbatim.
type ComposeOptions struct {
	Input           string
	Output          string
	Resolution      string // e.g. "1280:720"
	AspectRatio     string // accepted, not rendered
	BackgroundMusic string // optional
	Volume          float64
	FontFile        string
	FontSize        int
	TextColor       string
	Overlays        []string
}

// BuildCompose assembles the ffmpeg arguments for a composition.
func BuildCompose(opts ComposeOptions) Command {
	var c Command
	c.add("-i", opts.Input)

	if opts.BackgroundMusic != "" {
		c.add("-i", opts.BackgroundMusic)
		c.add("-filter_complex", audioMixGraph(opts.Volume))
	}

	c.add("-vf", drawTextFilter(opts)+","+scalePadFilter(opts.Resolution))

	for _, img := range opts.Overlays {
		c.add("-i", img)
	}
	if len(opts.Overlays) > 0 {
		c.add("-filter_complex", overlayGraph(len(opts.Overlays)))
	}

	c.add("-c:v", CodecVideo, "-c:a", CodecAudio, "-y", opts.Output)
	return c
}

func audioMixGraph(volume float64) string {
	return "[1:a]volume=" + formatFloat(volume) + "[a1];[0:a][a1]amix=inputs=2:duration=first:dropout_transition=2"
}

func drawTextFilter(opts ComposeOptions) string {
	return fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%s:x=(w-text_w)/2:y=(h-text_h)/2",
		opts.FontFile, PlaceholderText, opts.TextColor, strconv.Itoa(opts.FontSize))
}

func scalePadFilter(resolution string) string {
	return "scale=" + resolution + ":force_original_aspect_ratio=decrease,pad=" + resolution + ":(ow-iw)/2:(oh-ih)/2"
}

// overlayGraph scales each extra image input and stacks it on the main
// video. Image i is input i+1.
func overlayGraph(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d:v]scale=%d:%d[logo%d];", i+1, overlaySize, overlaySize, i)
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "[0:v][logo%d]overlay=%d:%d", i, overlayLeft, OverlayOffset(i))
	}
	return b.String()
}

// OverlayOffset is the top offset in pixels of overlay image i.
func OverlayOffset(i int) int {
	return overlayTop + overlayStride*i
}
