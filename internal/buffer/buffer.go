// Package buffer implements reusable byte buffers for socket I/O.
// Buffer offers append-only "segment" semantics for accumulating a
// logical token (a header field, a URL) across several socket reads,
// bounded by a maximum size so a hostile peer can't grow it unboundedly.
package buffer

// Buffer is a growable byte slice split into a "committed" prefix and a
// "current segment" suffix. Append accumulates into the current segment;
// Finish or Discard closes it out.
type Buffer struct {
	memory  []byte
	begin   int
	maxSize int
}

// New returns a Buffer with initialSize bytes pre-allocated and maxSize
// as its hard ceiling. Exceeding maxSize on Append fails the call rather
// than growing further — this is how max_url_size / max_headers_size
// are enforced.
func New(initialSize, maxSize int) *Buffer {
	return &Buffer{
		memory:  make([]byte, 0, initialSize),
		maxSize: maxSize,
	}
}

// Append writes elements into the current segment, refusing if doing so
// would exceed maxSize.
func (b *Buffer) Append(elements []byte) (ok bool) {
	if len(b.memory)+len(elements) > b.maxSize {
		return false
	}
	b.memory = append(b.memory, elements...)
	return true
}

// AppendByte writes a single byte, subject to the same limit as Append.
func (b *Buffer) AppendByte(c byte) (ok bool) {
	if len(b.memory)+1 > b.maxSize {
		return false
	}
	b.memory = append(b.memory, c)
	return true
}

// SegmentLength returns how many bytes belong to the current, unfinished
// segment.
func (b *Buffer) SegmentLength() int {
	return len(b.memory) - b.begin
}

// Trunc removes the last n bytes of the current segment, never touching
// previously finished segments.
func (b *Buffer) Trunc(n int) {
	if seglen := b.SegmentLength(); n > seglen {
		n = seglen
	}
	b.memory = b.memory[:len(b.memory)-n]
}

// Discard abandons the current segment, then rewinds the segment start by
// n bytes (at most to the beginning), so the last n committed bytes form
// the current segment again.
func (b *Buffer) Discard(n int) {
	b.memory = b.memory[:b.begin]
	if n > b.begin {
		n = b.begin
	}
	b.begin -= n
}

// Preview returns the current segment without closing it.
func (b *Buffer) Preview() []byte {
	return b.memory[b.begin:]
}

// Finish closes the current segment and returns its bytes. The returned
// slice aliases the buffer's backing array and is only valid until the
// next mutating call.
func (b *Buffer) Finish() []byte {
	segment := b.memory[b.begin:]
	b.begin = len(b.memory)
	return segment
}

// Clear resets the buffer to empty, retaining its backing array —
// equivalent to a "compact()" operation, specialised
// to the case where every unconsumed byte has already been parsed.
func (b *Buffer) Clear() {
	b.begin = 0
	b.memory = b.memory[:0]
}

// Cap reports the maximum number of bytes this buffer will ever hold.
func (b *Buffer) Cap() int {
	return b.maxSize
}
