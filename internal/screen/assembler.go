package screen

import (
	"strings"
	"unicode/utf8"
)

// Assembler turns arbitrarily split byte chunks into lines. A multi-byte
// character split across two chunks is held back until it is complete;
// bytes that can never form valid UTF-8 are dropped.
type Assembler struct {
	pending []byte // incomplete trailing rune
	partial strings.Builder
}

// Write consumes a chunk and returns the lines it completed.
func (a *Assembler) Write(chunk []byte) []string {
	data := append(a.pending, chunk...)
	a.pending = nil

	if tail := incompleteTail(data); tail > 0 {
		a.pending = append([]byte(nil), data[len(data)-tail:]...)
		data = data[:len(data)-tail]
	}

	text := strings.ToValidUTF8(string(data), "")
	var lines []string
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		a.partial.WriteString(text[:i])
		lines = append(lines, strings.TrimSuffix(a.partial.String(), "\r"))
		a.partial.Reset()
		text = text[i+1:]
	}
	a.partial.WriteString(text)
	return lines
}

// Flush returns the buffered partial line when it has visible content.
// Prompts that never end in a newline surface this way.
func (a *Assembler) Flush() (string, bool) {
	line := a.partial.String()
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	a.partial.Reset()
	return strings.TrimSuffix(line, "\r"), true
}

// incompleteTail returns how many trailing bytes start a rune that the
// next chunk may complete.
func incompleteTail(b []byte) int {
	for n := 1; n < utf8.UTFMax && n <= len(b); n++ {
		c := b[len(b)-n]
		if c < 0x80 {
			return 0
		}
		if utf8.RuneStart(c) {
			if utf8.FullRune(b[len(b)-n:]) {
				return 0
			}
			return n
		}
	}
	return 0
}
