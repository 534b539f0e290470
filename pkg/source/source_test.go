package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Message
		wantErr bool
	}{
		{
			name: "channel message",
			line: "net1 #chan hello there",
			want: Message{Network: "net1", Target: "#chan", Text: "hello there"},
		},
		{
			name: "nick prefix kept in text",
			line: "irc #general <bob> hi\n",
			want: Message{Network: "irc", Target: "#general", Text: "<bob> hi"},
		},
		{
			name: "internal spacing preserved",
			line: "freenode  alice   look  at   this  ",
			want: Message{Network: "freenode", Target: "alice", Text: "look  at   this"},
		},
		{
			name: "tabs separate fields",
			line: "oftc\t#debian\tping",
			want: Message{Network: "oftc", Target: "#debian", Text: "ping"},
		},
		{
			name: "empty text",
			line: "net #chan",
			want: Message{Network: "net", Target: "#chan"},
		},
		{
			name:    "single token",
			line:    "net",
			wantErr: true,
		},
		{
			name:    "blank",
			line:    "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Fatalf("expected *ParseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

// appendLine appends line to path and sets the file's mtime.
func appendLine(t *testing.T, path, line string, mtime time.Time) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
}

func TestLog_PollMissingFile(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "notify.log"))
	cursor := time.Unix(1000, 0)

	msg, next, err := log.Poll(cursor)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if msg != nil {
		t.Errorf("expected no message, got %+v", msg)
	}
	if !next.Equal(cursor) {
		t.Errorf("cursor moved on missing file: %v", next)
	}
}

func TestLog_PollAdoptsCursorWithoutReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.log")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	appendLine(t, path, "net1 #old history line", base)

	log := NewLog(path)

	msg, cursor, err := log.Poll(time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Fatalf("first poll must not replay history, got %+v", msg)
	}
	if !cursor.Equal(base) {
		t.Fatalf("cursor = %v, want adopted mtime %v", cursor, base)
	}

	// No modification: nothing new.
	msg, again, err := log.Poll(cursor)
	if err != nil || msg != nil {
		t.Fatalf("expected nothing new, got %+v, %v", msg, err)
	}
	if !again.Equal(cursor) {
		t.Errorf("cursor moved without modification")
	}

	appendLine(t, path, "net1 #chan hello there", base.Add(time.Second))

	msg, cursor, err = log.Poll(cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Message{Network: "net1", Target: "#chan", Text: "hello there"}
	if msg == nil || *msg != want {
		t.Fatalf("Poll() = %+v, want %+v", msg, want)
	}
	if !cursor.Equal(base.Add(time.Second)) {
		t.Errorf("cursor = %v, want %v", cursor, base.Add(time.Second))
	}

	// Idempotent: a second poll without modification yields nothing.
	msg, _, err = log.Poll(cursor)
	if err != nil || msg != nil {
		t.Errorf("duplicate delivery: %+v, %v", msg, err)
	}
}

func TestLog_PollMalformedLineAdvancesCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.log")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	appendLine(t, path, "net #chan first", base)

	log := NewLog(path)
	_, cursor, _ := log.Poll(time.Time{})

	appendLine(t, path, "garbage", base.Add(time.Second))

	msg, next, err := log.Poll(cursor)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if msg != nil {
		t.Errorf("expected no message, got %+v", msg)
	}
	if !next.Equal(base.Add(time.Second)) {
		t.Errorf("cursor must advance past a malformed line, got %v", next)
	}
}

func TestLog_PollOlderMtimeIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.log")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	appendLine(t, path, "net #chan first", base)

	log := NewLog(path)
	cursor := base.Add(time.Minute)

	msg, next, err := log.Poll(cursor)
	if err != nil || msg != nil {
		t.Fatalf("expected nothing, got %+v, %v", msg, err)
	}
	if !next.Equal(cursor) {
		t.Errorf("cursor must not move backwards")
	}
}

func TestLog_LastLine(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: ""},
		{name: "no trailing newline", content: "a b c", want: "a b c"},
		{name: "trailing blank lines", content: "one x y\ntwo x y\n\n\r\n", want: "two x y"},
		{name: "crlf", content: "one x y\r\ntwo x y\r\n", want: "two x y"},
		{
			name:    "last line spans chunks",
			content: "first x y\n" + "net #c " + strings.Repeat("z", 3*readChunk) + "\n",
			want:    "net #c " + strings.Repeat("z", 3*readChunk),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "notify.log")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			got, err := NewLog(path).lastLine()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("lastLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLog_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.log")
	log := NewLog(path)

	ctx, cancel := context.WithCancel(context.Background())
	wake, err := log.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	appendLine(t, path, "net #chan ping", time.Now())

	select {
	case <-wake:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for wake-up")
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-wake:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("wake channel not closed after cancel")
		}
	}
}
