package transcoder

// TrimOptions cuts [Start, End] seconds out of Input. End is not checked
// against Start; ffmpeg decides what an inverted range means.
type TrimOptions struct {
	Input  string
	Output string
	Start  float64
	End    float64
}

// BuildTrim assembles the ffmpeg arguments for a trim.
func BuildTrim(opts TrimOptions) Command {
	var c Command
	c.add("-i", opts.Input)
	c.add("-ss", formatFloat(opts.Start), "-to", formatFloat(opts.End))
	c.add("-c:v", CodecVideo, "-c:a", CodecAudio, "-y", opts.Output)
	return c
}
