// Package clipboard encodes cut/copy file lists in the text format file
// managers exchange, and reads or writes it on the system clipboard.
package clipboard

import (
	"strings"

	"github.com/atotto/clipboard"
)

// Marker is the first line of every payload.
const Marker = "x-special/nautilus-clipboard"

// Action is what the receiver of a payload should do with the files.
type Action string

const (
	Copy Action = "copy"
	Cut  Action = "cut"
)

// Payload is a parsed clipboard text. Valid is false when the text was not
// a file list; the other fields are then zero.
type Payload struct {
	Valid bool
	IsCut bool
	URIs  []string
}

// Serialize renders uris as a clipboard payload: marker, action, one URI per
// line and a trailing newline.
func Serialize(action Action, uris []string) string {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteByte('\n')
	b.WriteString(string(action))
	b.WriteByte('\n')
	for _, uri := range uris {
		b.WriteString(uri)
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads a payload written by Serialize (or by a file manager). Any
// other text yields an invalid Payload.
func Parse(text string) Payload {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= 2 {
		return Payload{}
	}
	if lines[0] != Marker {
		return Payload{}
	}

	var isCut bool
	switch Action(lines[1]) {
	case Cut:
		isCut = true
	case Copy:
	default:
		return Payload{}
	}

	uris := make([]string, 0, len(lines)-2)
	for _, line := range lines[2:] {
		if line == "" {
			continue
		}
		uris = append(uris, line)
	}
	if len(uris) == 0 {
		return Payload{}
	}
	return Payload{Valid: true, IsCut: isCut, URIs: uris}
}

// Provider reads and writes clipboard text.
type Provider interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// System is the desktop clipboard (xclip, xsel or wl-clipboard underneath).
type System struct{}

// Unsupported reports whether no clipboard helper was found.
func (System) Unsupported() bool {
	return clipboard.Unsupported
}

func (System) ReadText() (string, error) {
	return clipboard.ReadAll()
}

func (System) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Memory is an in-process clipboard used when the system one is unavailable.
type Memory struct {
	text string
}

func (m *Memory) ReadText() (string, error) {
	return m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.text = text
	return nil
}

// Default returns the system clipboard when a helper is installed, otherwise
// an in-memory one.
func Default() Provider {
	if clipboard.Unsupported {
		return &Memory{}
	}
	return System{}
}
