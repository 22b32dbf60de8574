package container

// tailBuffer is a fixed-size ring that keeps the most recent bytes written.
// Harness markers are printed last, so the tail of a noisy run is what
// matters; older output is overwritten.
type tailBuffer struct {
	buf  []byte
	head int // next write position
	full bool
}

func newTailBuffer(size int) *tailBuffer {
	if size <= 0 {
		size = maxOutputBytes
	}
	return &tailBuffer{buf: make([]byte, size)}
}

// Write implements io.Writer. It never fails.
func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= len(b.buf) {
		copy(b.buf, p[n-len(b.buf):])
		b.head = 0
		b.full = true
		return n, nil
	}

	copied := copy(b.buf[b.head:], p)
	if copied < n {
		copy(b.buf, p[copied:])
		b.full = true
	}
	next := b.head + n
	if next >= len(b.buf) {
		b.full = true
	}
	b.head = next % len(b.buf)
	return n, nil
}

// Len returns the number of bytes held.
func (b *tailBuffer) Len() int {
	if b.full {
		return len(b.buf)
	}
	return b.head
}

// String returns the held bytes in write order.
func (b *tailBuffer) String() string {
	if !b.full {
		return string(b.buf[:b.head])
	}
	return string(b.buf[b.head:]) + string(b.buf[:b.head])
}
