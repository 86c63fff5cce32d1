// Package tail incrementally reads newly appended lines from a log file that
// another process is writing. It survives truncation and rotation and never
// returns a line before its terminating newline has been written.
package tail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultMaxChunk bounds the bytes read in a single Poll. Lines longer than
// this are split.
const DefaultMaxChunk = 1 << 20

// ErrUnavailable is wrapped by Poll when the log file cannot be located or
// opened. It is recoverable: the caller should retry on the next cycle.
var ErrUnavailable = errors.New("log file unavailable")

// Position is the read cursor into the tailed file. It is a plain value so
// it can be checkpointed and restored across restarts.
type Position struct {
	Path     string `json:"path"`
	Offset   int64  `json:"offset"`
	Identity string `json:"identity,omitempty"`
}

// Source reports new lines since the previous call.
type Source interface {
	Poll() ([]string, error)
	Position() Position
}

// Ensure Tailer implements Source at compile time.
var _ Source = (*Tailer)(nil)

// Tailer owns the file position. Not safe for concurrent use.
type Tailer struct {
	locate   Locator
	pos      Position
	maxChunk int64
	resets   int
	behind   bool // last Poll stopped at maxChunk with more data on disk
}

// New creates a Tailer that resumes from pos. Pass the zero Position to start
// at the top of whatever file locate resolves to.
func New(locate Locator, pos Position) *Tailer {
	return &Tailer{
		locate:   locate,
		pos:      pos,
		maxChunk: DefaultMaxChunk,
	}
}

// SetMaxChunk overrides DefaultMaxChunk. Values <= 0 are ignored.
func (t *Tailer) SetMaxChunk(n int64) {
	if n > 0 {
		t.maxChunk = n
	}
}

// Position returns the current read cursor.
func (t *Tailer) Position() Position {
	return t.pos
}

// Resets returns how many times the position was reset because the file was
// rotated, replaced or truncated.
func (t *Tailer) Resets() int {
	return t.resets
}

// Behind reports whether the last Poll returned a full chunk and left
// unread bytes in the file. Calling Poll again returns them immediately.
func (t *Tailer) Behind() bool {
	return t.behind
}

// Poll returns the complete lines appended since the last call. A trailing
// line without a newline is left for a later call. Invalid UTF-8 is replaced
// rather than reported.
func (t *Tailer) Poll() ([]string, error) {
	t.behind = false
	path, err := t.locate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrUnavailable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnavailable, path)
	}

	t.sync(path, fileIdentity(f, info), info.Size())

	size := info.Size()
	if size == t.pos.Offset {
		return nil, nil
	}

	// One byte past the chunk tells a line of exactly maxChunk bytes apart
	// from an oversized one.
	n := size - t.pos.Offset
	capped := n > t.maxChunk+1
	if capped {
		n = t.maxChunk + 1
	}
	buf := make([]byte, n)
	read, err := f.ReadAt(buf, t.pos.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	buf = buf[:read]

	consumed := bytes.LastIndexByte(buf, '\n') + 1
	if consumed == 0 {
		if int64(len(buf)) <= t.maxChunk {
			// Partial line; wait for the writer to finish it.
			return nil, nil
		}
		// Longer than a chunk without any newline. Emit it in pieces so
		// tailing cannot stall.
		consumed = int(t.maxChunk)
	}

	lines := splitLines(buf[:consumed])
	t.pos.Offset += int64(consumed)
	t.behind = capped
	return lines, nil
}

// sync reconciles the stored position with the file currently on disk.
func (t *Tailer) sync(path, identity string, size int64) {
	reset := false
	switch {
	case t.pos.Path != "" && t.pos.Path != path:
		reset = true
	case t.pos.Identity != "" && identity != "" && t.pos.Identity != identity:
		reset = true
	case size < t.pos.Offset:
		reset = true
	}

	if reset {
		t.pos = Position{Path: path, Identity: identity}
		t.resets++
		return
	}

	t.pos.Path = path
	if identity != "" {
		t.pos.Identity = identity
	}
}

func splitLines(b []byte) []string {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	parts := bytes.Split(b, []byte{'\n'})
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = bytes.TrimSuffix(p, []byte{'\r'})
		lines = append(lines, strings.ToValidUTF8(string(p), "�"))
	}
	return lines
}
