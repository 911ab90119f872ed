// Package connbuf decouples "bytes have arrived" from "a whole message is
// ready" for one peer.
package connbuf

import (
	"errors"
	"fmt"
	"io"

	"github.com/DoyleJ11/liars-dice/internal/wire"
)

var ErrOverflow = fmt.Errorf("%w: inbound buffer limit exceeded", wire.ErrProtocolViolation)

// Buffer holds one connection's unconsumed inbound bytes and its queued
// outbound bytes. It is not safe for concurrent use; exactly one goroutine
// owns each Buffer.
type Buffer struct {
	decode wire.Decoder
	limit  int

	in  []byte
	off int // start of unconsumed inbound bytes

	out []byte
}

// New returns a Buffer that decodes inbound bytes with decode.
func New(decode wire.Decoder) *Buffer {
	return &Buffer{decode: decode}
}

// WithLimit caps how many unconsumed inbound bytes may pile up. Zero means
// no cap.
func (b *Buffer) WithLimit(n int) *Buffer {
	b.limit = n
	return b
}

// Feed appends freshly read bytes.
func (b *Buffer) Feed(p []byte) error {
	if b.off > 0 && b.off >= len(b.in)/2 {
		n := copy(b.in, b.in[b.off:])
		b.in = b.in[:n]
		b.off = 0
	}
	b.in = append(b.in, p...)
	if b.limit > 0 && b.Buffered() > b.limit {
		return ErrOverflow
	}
	return nil
}

// Buffered reports how many inbound bytes are waiting to be consumed.
func (b *Buffer) Buffered() int {
	return len(b.in) - b.off
}

// TryTake decodes at most one message. ok is false when no whole message is
// buffered yet; the cursor only moves when a message is returned. Call it
// in a loop until ok is false, since one read can carry several messages.
func (b *Buffer) TryTake() (wire.Message, bool, error) {
	msg, n, err := b.decode(b.in[b.off:])
	if errors.Is(err, wire.ErrIncomplete) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	b.off += n
	if b.off == len(b.in) {
		b.in = b.in[:0]
		b.off = 0
	}
	return msg, true, nil
}

// Send queues m for the transport.
func (b *Buffer) Send(m wire.Message) {
	b.out = wire.Append(b.out, m)
}

// Pending returns the queued outbound bytes without draining them.
func (b *Buffer) Pending() []byte {
	return b.out
}

// Drain returns and clears the queued outbound bytes.
func (b *Buffer) Drain() []byte {
	if len(b.out) == 0 {
		return nil
	}
	out := b.out
	b.out = nil
	return out
}

// WriteTo writes queued outbound bytes to w. Bytes w did not accept stay
// queued.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if len(b.out) == 0 {
		return 0, nil
	}
	n, err := w.Write(b.out)
	b.out = b.out[n:]
	if len(b.out) == 0 {
		b.out = nil
	}
	return int64(n), err
}
