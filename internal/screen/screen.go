// Package screen rebuilds the game's visible frame from raw terminal
// lines: it detects clear-screen sequences, strips escape codes and keeps
// an append-only log of everything the game printed.
package screen

import (
	"io"
	"regexp"
	"strings"
)

// clearSequences are the byte sequences the game emits to wipe the
// terminal before redrawing.
var clearSequences = []string{
	"\x1b[2J", // erase display
	"\x1b[H",  // cursor home
	"\x1bc",   // full reset
}

var controlSequence = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// IsClearScreen reports whether text contains a clear or home sequence.
func IsClearScreen(text string) bool {
	for _, seq := range clearSequences {
		if strings.Contains(text, seq) {
			return true
		}
	}
	return false
}

// StripControlSequences removes CSI sequences and two-byte escapes.
func StripControlSequences(text string) string {
	if !strings.Contains(text, "\x1b") {
		return text
	}
	return controlSequence.ReplaceAllString(text, "")
}

// Result describes what Process did with a raw line.
type Result struct {
	Cleared bool   // the line wiped the frame
	Line    string // cleaned line, empty when nothing was published
}

// Published reports whether the line was added to the frame.
func (r Result) Published() bool {
	return r.Line != ""
}

// Processor accumulates the current frame. It is not safe for concurrent
// use; the tracker owns it from a single goroutine.
type Processor struct {
	log        io.Writer
	frame      []string
	generation int
}

// NewProcessor returns a processor that mirrors raw lines to log. A nil
// log discards them.
func NewProcessor(log io.Writer) *Processor {
	if log == nil {
		log = io.Discard
	}
	return &Processor{log: log}
}

// Process handles one raw line from the terminal.
func (p *Processor) Process(raw string) (Result, error) {
	if IsClearScreen(raw) {
		p.frame = nil
		p.generation++
		return Result{Cleared: true}, nil
	}

	if _, err := io.WriteString(p.log, raw+"\n"); err != nil {
		// keep the frame moving even when the log is gone
		err = &LogError{Err: err}
		return p.publish(raw), err
	}
	return p.publish(raw), nil
}

func (p *Processor) publish(raw string) Result {
	clean := strings.TrimSpace(StripControlSequences(strings.TrimSpace(raw)))
	if clean == "" {
		return Result{}
	}
	p.frame = append(p.frame, clean)
	return Result{Line: clean}
}

// Frame returns a copy of the lines shown since the last clear.
func (p *Processor) Frame() []string {
	return append([]string(nil), p.frame...)
}

// Text joins the frame with newlines.
func (p *Processor) Text() string {
	return strings.Join(p.frame, "\n")
}

// Generation counts the clears seen so far.
func (p *Processor) Generation() int {
	return p.generation
}

// Reset drops the frame without counting a clear.
func (p *Processor) Reset() {
	p.frame = nil
}

// LogError wraps a failed write to the raw output log.
type LogError struct {
	Err error
}

func (e *LogError) Error() string { return "screen: write log: " + e.Err.Error() }

func (e *LogError) Unwrap() error { return e.Err }
