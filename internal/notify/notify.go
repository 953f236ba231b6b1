// Package notify is the transient-message sink both flows report through.
// It is the terminal stand-in for the original toast popups.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Notifier receives short user-facing status lines. Implementations must
// be safe for use from a single foreground goroutine.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Writer prints notifications as single prefixed lines.
type Writer struct {
	Out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{Out: out}
}

func (w *Writer) Success(msg string) { fmt.Fprintf(w.Out, "[ok] %s\n", msg) }
func (w *Writer) Error(msg string)   { fmt.Fprintf(w.Out, "[error] %s\n", msg) }
func (w *Writer) Info(msg string)    { fmt.Fprintf(w.Out, "[info] %s\n", msg) }

// Recorded is one captured notification.
type Recorded struct {
	Level   string
	Message string
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Recorded
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(msg string) { r.record("success", msg) }
func (r *Recorder) Error(msg string)   { r.record("error", msg) }
func (r *Recorder) Info(msg string)    { r.record("info", msg) }

func (r *Recorder) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Recorded{Level: level, Message: msg})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent notification, or false when none exist.
func (r *Recorder) Last() (Recorded, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Recorded{}, false
	}
	return r.messages[len(r.messages)-1], true
}
