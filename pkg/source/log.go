package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	readChunk   = 4096
	maxLineSize = 1 << 20
)

// ErrUnavailable is returned by Poll when the message log does not exist
// or cannot be read.
var ErrUnavailable = errors.New("message log unavailable")

// Log is the append-only message log. Only its last line is ever read.
type Log struct {
	path string
}

// NewLog creates a Log reading path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Poll checks whether a new message was appended since cursor, the
// modification time observed on the previous call.
//
// A zero cursor adopts the current modification time without returning a
// message, so history is never replayed after a restart. Whenever the log
// advanced, the returned cursor moves forward even if the last line fails
// to parse; the ParseError is returned alongside it.
func (l *Log) Poll(cursor time.Time) (*Message, time.Time, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, cursor, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	mtime := info.ModTime()

	if cursor.IsZero() {
		return nil, mtime, nil
	}
	if !mtime.After(cursor) {
		return nil, cursor, nil
	}

	line, err := l.lastLine()
	if err != nil {
		return nil, mtime, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if line == "" {
		return nil, mtime, nil
	}

	msg, err := ParseLine(line)
	if err != nil {
		return nil, mtime, err
	}
	return &msg, mtime, nil
}

// lastLine returns the last non-empty line of the log, reading backwards
// from the end so large logs are cheap to check.
func (l *Log) lastLine() (string, error) {
	// #nosec G304 - log path comes from the operator's config
	f, err := os.Open(l.path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	var buf []byte
	end := info.Size()
	for end > 0 {
		start := max(0, end-readChunk)
		chunk := make([]byte, end-start)
		if _, err := f.ReadAt(chunk, start); err != nil && err != io.EOF {
			return "", err
		}
		buf = append(chunk, buf...)

		trimmed := bytes.TrimRight(buf, "\r\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return string(trimmed[i+1:]), nil
		}
		if len(trimmed) > maxLineSize {
			return string(trimmed[len(trimmed)-maxLineSize:]), nil
		}
		end = start
	}
	return string(bytes.TrimRight(buf, "\r\n")), nil
}

// Watch emits on the returned channel whenever the log file is written or
// replaced, until ctx is cancelled. Events are coalesced: a pending wake-up
// is never duplicated. The parent directory must exist.
func (l *Log) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	file := filepath.Clean(l.path)
	wake := make(chan struct{}, 1)

	go func() {
		defer close(wake)
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != file {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return wake, nil
}
