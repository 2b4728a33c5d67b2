// Copyright 2026 The Relaunch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relaunch

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the severity attached to each logged line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// TimeFormat is the timestamp layout used in log lines.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel converts a level name, in any case, to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the log sink shared by the supervisor, the fetcher, the
// child's captured output, and the HTTP layer.  Every line it emits has
// the form
//
//	[<timestamp>] <level>: <message>
//
// and is fanned out to each registered writer.  Messages that contain
// newlines are split, so every line written carries its own prefix.
// The writers are typically the console, an append-only log file, and
// an in-memory Log.
type Logger struct {
	level   Level
	writers []io.Writer
	files   []*os.File
	now     func() time.Time
	lock    sync.Mutex
}

// NewLogger returns a Logger that drops lines below level.
func NewLogger(level Level, writers ...io.Writer) *Logger {
	l := &Logger{level: level, now: time.Now}
	for _, w := range writers {
		l.AddWriter(w)
	}
	return l
}

// AddWriter adds a destination.  A writer can only be added once.
// Writers must be comparable, which pointers always are.
func (l *Logger) AddWriter(w io.Writer) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, x := range l.writers {
		if x == w {
			return
		}
	}
	l.writers = append(l.writers, w)
}

// DelWriter removes a destination added earlier.
func (l *Logger) DelWriter(w io.Writer) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i, x := range l.writers {
		if x == w {
			l.writers = append(l.writers[:i], l.writers[i+1:]...)
			break
		}
	}
}

// OpenFile opens path for appending, creating it and its directory if
// needed, and adds it as a destination.  The file is closed by Close.
func (l *Logger) OpenFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if e := os.MkdirAll(dir, 0755); e != nil {
			return fmt.Errorf("create log directory %s: %w", dir, e)
		}
	}
	f, e := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if e != nil {
		return fmt.Errorf("open log file %s: %w", path, e)
	}
	l.AddWriter(f)
	l.lock.Lock()
	l.files = append(l.files, f)
	l.lock.Unlock()
	return nil
}

// Close closes any files opened with OpenFile and removes them from
// the destinations.
func (l *Logger) Close() error {
	l.lock.Lock()
	files := l.files
	l.files = nil
	l.lock.Unlock()

	var rv error
	for _, f := range files {
		l.DelWriter(f)
		if e := f.Close(); e != nil && rv == nil {
			rv = e
		}
	}
	return rv
}

func (l *Logger) SetLevel(level Level) {
	l.lock.Lock()
	l.level = level
	l.lock.Unlock()
}

func (l *Logger) Level() Level {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.level
}

func (l *Logger) emit(level Level, msg string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if level < l.level {
		return
	}
	l.write(level, msg)
}

// Call with lock held.
func (l *Logger) write(level Level, msg string) {
	stamp := l.now().UTC().Format(TimeFormat)
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(msg, "\r\n"), "\n") {
		sb.WriteString("[")
		sb.WriteString(stamp)
		sb.WriteString("] ")
		sb.WriteString(level.String())
		sb.WriteString(": ")
		sb.WriteString(strings.TrimRight(line, "\r"))
		sb.WriteString("\n")
	}
	b := []byte(sb.String())
	for _, w := range l.writers {
		// A broken destination must not take the others down with it.
		_, _ = w.Write(b)
	}
}

// Log emits msg verbatim at the given level, where the text must not be
// treated as a format string.
func (l *Logger) Log(level Level, msg string) {
	l.emit(level, msg)
}

// Forward emits captured child output verbatim.  It ignores the level
// filter: the child's output is always kept.
func (l *Logger) Forward(level Level, msg string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.write(level, msg)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.emit(LevelDebug, fmt.Sprintf(format, v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.emit(LevelInfo, fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.emit(LevelWarn, fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.emit(LevelError, fmt.Sprintf(format, v...))
}

// levelWriter adapts a Logger to io.Writer at a fixed level.
type levelWriter struct {
	l     *Logger
	level Level
}

func (w levelWriter) Write(b []byte) (int, error) {
	w.l.emit(w.level, string(b))
	return len(b), nil
}

// Writer returns an io.Writer that logs each line written at level.
func (l *Logger) Writer(level Level) io.Writer {
	return levelWriter{l: l, level: level}
}

// StdLogger returns a standard library logger feeding this Logger, for
// APIs such as http.Server.ErrorLog.
func (l *Logger) StdLogger(level Level) *log.Logger {
	return log.New(l.Writer(level), "", 0)
}
