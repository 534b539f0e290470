// Package source reads the append-only log of notable IRC messages written
// by the IRC client plugin and reports each new message exactly once.
package source

import (
	"fmt"
	"strings"
	"unicode"
)

// Message is one inbound notable message.
type Message struct {
	Network string
	Target  string
	Text    string
}

// ParseError reports a log line that does not carry a network and target.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message line %q: want <network> <target> <text>", e.Line)
}

// ParseLine splits a log line into network, target and text. The text is
// everything after the second field with its internal spacing kept.
func ParseLine(line string) (Message, error) {
	rest := strings.TrimRight(line, "\r\n")

	network, rest, ok := cutField(rest)
	if !ok {
		return Message{}, &ParseError{Line: line}
	}
	target, rest, ok := cutField(rest)
	if !ok {
		return Message{}, &ParseError{Line: line}
	}

	return Message{
		Network: network,
		Target:  target,
		Text:    strings.TrimSpace(rest),
	}, nil
}

func cutField(s string) (field, rest string, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", "", false
	}
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, "", true
	}
	return s[:i], s[i:], true
}
