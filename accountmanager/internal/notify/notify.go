// Package notify delivers operator-facing notices, the terminal stand-in for
// the dashboard's alert dialogs.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Notifier interface {
	Notify(level Level, msg string)
}

// Writer prints one notice per line.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	log *slog.Logger
}

func NewWriter(out io.Writer, log *slog.Logger) *Writer {
	return &Writer{out: out, log: log}
}

func (w *Writer) Notify(level Level, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	switch level {
	case LevelInfo:
		_, err = fmt.Fprintln(w.out, msg)
	default:
		_, err = fmt.Fprintf(w.out, "[%s] %s\n", level, msg)
	}
	if err != nil && w.log != nil {
		w.log.Warn("Failed to write notice", "level", level, "msg", msg, "error", err)
	}
}

type Notice struct {
	Level Level
	Msg   string
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Msg: msg})
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Msg)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
