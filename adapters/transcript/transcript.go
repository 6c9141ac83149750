package transcript

import (
	"bytes"
	"slices"
	"sync"

	"github.com/sa6mwa/linerun/port"
)

// Transcript implements port.Transcript. It accumulates chunks in append
// order and hands out cloned snapshots so callers cannot alias the internal
// buffer. The mutex makes it safe to snapshot while a background drain is
// still appending.
type Transcript struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

var _ port.Transcript = (*Transcript)(nil)

// New constructs an empty transcript.
func New() *Transcript {
	t := &Transcript{}
	t.buf.Grow(128)
	return t
}

// Append adds chunk to the end of the transcript.
func (t *Transcript) Append(chunk string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.WriteString(chunk)
}

// Len returns the number of bytes accumulated so far.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Len()
}

// Bytes returns a copy of the accumulated chunks in append order.
func (t *Transcript) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.buf.Bytes())
}
