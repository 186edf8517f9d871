/*
NAME
  stream.go

DESCRIPTION
  stream.go implements BufferStream, a queue of input ByteChunks exposed
  as a single logical byte stream with random-access peek/extract/consume.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg2video

// BufferStream is a queue of ByteChunks presented as one logical byte
// stream. The head of the queue is the chunk currently being consumed;
// headOffset tracks how many of its bytes have already been consumed.
type BufferStream struct {
	queue      []ByteChunk
	headOffset int
}

// NewBufferStream returns an empty BufferStream.
func NewBufferStream() *BufferStream {
	return &BufferStream{}
}

// Append enqueues chunk. It returns true if chunk became the new head of
// the queue (i.e. the queue was previously empty). The Framer ignores this
// result; it promotes chunk metadata through MetasInRange.
func (b *BufferStream) Append(chunk ByteChunk) (becameHead bool) {
	becameHead = len(b.queue) == 0
	b.queue = append(b.queue, chunk)
	return becameHead
}

// TotalSize returns the number of unconsumed bytes buffered.
func (b *BufferStream) TotalSize() int {
	n := -b.headOffset
	for _, c := range b.queue {
		n += len(c.Bytes)
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Reset wipes the queue and consumption offset.
func (b *BufferStream) Reset() {
	b.queue = b.queue[:0]
	b.headOffset = 0
}

// ReadSpan returns a zero-copy contiguous slice of the logical stream
// starting at offset. Its length is the number of bytes available in that
// contiguous run, which may be shorter than the remaining total size if
// offset falls short of a chunk boundary.
func (b *BufferStream) ReadSpan(offset int) []byte {
	pos := offset + b.headOffset
	for _, c := range b.queue {
		if pos < len(c.Bytes) {
			return c.Bytes[pos:]
		}
		pos -= len(c.Bytes)
	}
	return nil
}

// Peek copies length bytes starting at offset into a freshly allocated
// slice, spanning chunk boundaries as needed. It returns ErrOutOfBounds
// if fewer than length bytes are buffered from offset.
func (b *BufferStream) Peek(offset, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset+length > b.TotalSize() {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, 0, length)
	pos := offset + b.headOffset
	for _, c := range b.queue {
		if len(out) == length {
			break
		}
		if pos >= len(c.Bytes) {
			pos -= len(c.Bytes)
			continue
		}
		avail := c.Bytes[pos:]
		need := length - len(out)
		if need < len(avail) {
			avail = avail[:need]
		}
		out = append(out, avail...)
		pos = 0
	}
	return out, nil
}

// Consume discards the first n bytes of the logical stream without
// copying them.
func (b *BufferStream) Consume(n int) error {
	if n > b.TotalSize() {
		return ErrOutOfBounds
	}
	remaining := n
	for remaining > 0 && len(b.queue) > 0 {
		head := b.queue[0]
		avail := len(head.Bytes) - b.headOffset
		if remaining < avail {
			b.headOffset += remaining
			remaining = 0
			break
		}
		remaining -= avail
		b.queue = b.queue[1:]
		b.headOffset = 0
	}
	return nil
}

// MetasInRange returns the ChunkMeta of each underlying chunk whose first
// byte lies in the logical range [lo, hi), in queue order. The framer uses
// this to promote a chunk's timestamps into pending state exactly once,
// at the moment scanning first reaches that chunk's bytes.
func (b *BufferStream) MetasInRange(lo, hi int) []ChunkMeta {
	if hi <= lo {
		return nil
	}
	var metas []ChunkMeta
	pos := -b.headOffset
	for _, c := range b.queue {
		if pos >= hi {
			break
		}
		if pos >= lo {
			metas = append(metas, c.Meta)
		}
		pos += len(c.Bytes)
	}
	return metas
}

// Extract splits off the first n bytes of the logical stream as a new
// ByteChunk (copying, since it may splice across several queue entries),
// and consumes them from the queue.
func (b *BufferStream) Extract(n int) (ByteChunk, error) {
	if n > b.TotalSize() {
		return ByteChunk{}, ErrOutOfBounds
	}
	if n == 0 {
		return ByteChunk{Bytes: []byte{}}, nil
	}
	out := make([]byte, 0, n)
	var meta ChunkMeta
	haveMeta := false
	remaining := n
	for remaining > 0 && len(b.queue) > 0 {
		head := b.queue[0]
		avail := head.Bytes[b.headOffset:]
		if !haveMeta {
			meta = head.Meta
			haveMeta = true
		}
		if remaining < len(avail) {
			out = append(out, avail[:remaining]...)
			b.headOffset += remaining
			remaining = 0
			break
		}
		out = append(out, avail...)
		remaining -= len(avail)
		b.queue = b.queue[1:]
		b.headOffset = 0
	}
	return ByteChunk{Bytes: out, Meta: meta}, nil
}
