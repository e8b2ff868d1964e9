package transcoder

import (
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Resolution presets offered by export and accepted anywhere a resolution
// is expected.
var presets = map[string]string{
	"480p":  "854:480",
	"720p":  "1280:720",
	"1080p": "1920:1080",
	"2K":    "2560:1440",
	"4K":    "3840:2160",
}

// ResolvePreset maps a preset name such as "720p" to "1280:720".
// Unknown names are returned unchanged with ok=false.
func ResolvePreset(name string) (size string, ok bool) {
	size, ok = presets[name]
	if !ok {
		return name, false
	}
	return size, true
}

// ExportOptions rescales Input to one of the presets. Unknown presets fall
// back to 4K.
type ExportOptions struct {
	Input  string
	Output string
	Preset string
}

// BuildExport assembles a plain rescale.
func BuildExport(opts ExportOptions) Command {
	size, ok := ResolvePreset(opts.Preset)
	if !ok {
		size = presets["4K"]
	}

	args := ffmpeg.Input(opts.Input).
		Output(opts.Output, ffmpeg.KwArgs{"vf": "scale=" + size}).
		OverWriteOutput().
		GetArgs()
	return Command{Args: args}
}
