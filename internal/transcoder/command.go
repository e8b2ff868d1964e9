package transcoder

import (
	"strconv"
	"strings"
)

// Command is the argument vector handed to ffmpeg, without the binary name.
// Arguments are passed to the process as-is; no shell ever parses them.
type Command struct {
	Args []string
}

// String renders the command as a shell-quoted line. It exists for logs and
// API responses only.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, "ffmpeg")
	for _, a := range c.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func (c *Command) add(args ...string) {
	c.Args = append(c.Args, args...)
}

// formatFloat renders numbers the way a default C++ ostream does:
// %g with six significant digits, so 2.0 becomes "2" and 0.5 stays "0.5".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()[]*?!#~{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
