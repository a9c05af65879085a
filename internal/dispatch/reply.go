package dispatch

import "strings"

// '#' is reserved on the reply channel, and '%' is escaped too so an escape
// produced here is never confused with text the user typed.
var replyEscaper = strings.NewReplacer("%", "%25", "#", "%23")

// encodeLine applies the reply-channel escaping to one line.
func encodeLine(line string) string {
	return replyEscaper.Replace(line)
}

// Lines splits results into single lines, drops empty ones and encodes the
// rest.
func Lines(results ...string) []string {
	var out []string
	for _, r := range results {
		for _, line := range strings.Split(r, "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, encodeLine(line))
		}
	}
	return out
}
