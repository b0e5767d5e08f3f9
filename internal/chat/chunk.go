// Package chat turns raw inbound messages into inference requests and shapes
// the model's reply for the transport: addressing detection for group chats,
// dialog context assembly, and length-bounded chunking of outbound text.
package chat

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLen stays comfortably under the transport's ~4096-char cap.
const DefaultChunkLen = 3800

// Split breaks text into chunks of at most maxLen characters, preferring to
// break on line boundaries. Lines longer than maxLen are hard-split. Each
// chunk is trimmed of surrounding whitespace, empty chunks are dropped, and
// empty input yields a single placeholder chunk so the caller always has
// something to send.
func Split(text string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = DefaultChunkLen
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{"…"}
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		if p := strings.TrimSpace(buf.String()); p != "" {
			parts = append(parts, p)
		}
		buf.Reset()
	}

	for _, line := range splitLinesKeepEnds(text) {
		// Hard-split very long lines, never inside a rune.
		for len(line) > maxLen {
			cut := maxLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxLen
			}
			head := line[:cut]
			line = line[cut:]
			flush()
			if p := strings.TrimSpace(head); p != "" {
				parts = append(parts, p)
			}
		}
		if buf.Len()+len(line) > maxLen && buf.Len() > 0 {
			flush()
		}
		buf.WriteString(line)
	}
	flush()

	if len(parts) == 0 {
		return []string{"…"}
	}
	return parts
}

// splitLinesKeepEnds splits on "\n" while keeping the newline attached to
// each line, so rejoining the pieces reproduces the input exactly.
func splitLinesKeepEnds(s string) []string {
	var lines []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			if s != "" {
				lines = append(lines, s)
			}
			return lines
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
}
