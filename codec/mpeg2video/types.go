/*
NAME
  types.go

DESCRIPTION
  types.go provides the core data types shared across the mpeg2video
  framer: timestamps, rational numbers, byte chunks and the errors the
  framer can return.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mpeg2video provides a framer for ISO/IEC 13818-2 (MPEG-2) video
// elementary streams. It consumes an arbitrary-boundary byte stream and
// emits a sequence of framed pictures, each annotated with decoded
// metadata (picture type, temporal reference, duration, timestamps).
package mpeg2video

import (
	"errors"
	"math/big"
)

// Errors returned by the framer. These map onto the error kinds described
// in spec.md §7; local recovery is attempted wherever possible, so most of
// these are logged rather than surfaced to the caller of Input.
var (
	// ErrInvalidStream indicates an unsupported framerate, level, chroma or
	// aspect code was encountered while parsing a sequence. The affected
	// sequence's flow definition is not emitted, but the stream remains
	// acquired.
	ErrInvalidStream = errors.New("mpeg2video: invalid stream parameter")

	// ErrHeaderShort indicates a header's byte slice ended before all of
	// its fixed fields could be read.
	ErrHeaderShort = errors.New("mpeg2video: header decode ended early")

	// ErrAlloc indicates a buffer splice, peek or duplication failed. This
	// is the only fatal error kind; the Framer instance must be discarded.
	ErrAlloc = errors.New("mpeg2video: buffer allocation failed")

	// ErrOutOfBounds indicates a requested region exceeded the bytes
	// currently buffered in a BufferStream.
	ErrOutOfBounds = errors.New("mpeg2video: region exceeds buffered bytes")

	// ErrFrameTooLarge is returned by WithMaxFrameSize for a non-positive
	// limit. A frame that exceeds the limit is not reported with it: the
	// framer resyncs and raises EventSyncLost instead.
	ErrFrameTooLarge = errors.New("mpeg2video: frame exceeds maximum size")
)

// Rational is a nonnegative rational number, always kept in lowest terms.
type Rational struct {
	Num, Den uint64
}

// NewRational returns num/den reduced by their GCD. A zero denominator is
// left as-is; callers that allow num/0 (e.g. "unknown") must check Den
// themselves.
func NewRational(num, den uint64) Rational {
	if den == 0 {
		return Rational{Num: num, Den: 0}
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).SetUint64(num), new(big.Int).SetUint64(den))
	d := g.Uint64()
	if d == 0 {
		d = 1
	}
	return Rational{Num: num / d, Den: den / d}
}

// Timestamp is a 64-bit decoder timestamp. UnsetTimestamp means "unknown".
type Timestamp uint64

// UnsetTimestamp is the sentinel for "no timestamp present".
const UnsetTimestamp Timestamp = 1<<64 - 1

// Set reports whether ts carries a known value.
func (ts Timestamp) Set() bool { return ts != UnsetTimestamp }

// Timestamps bundles the six independent timing channels that travel
// alongside a chunk or a picture, per spec.md §3.
type Timestamps struct {
	PTSOrig, PTS, PTSSys Timestamp
	DTSOrig, DTS, DTSSys Timestamp
}

// unset returns a Timestamps with every channel set to UnsetTimestamp.
func unsetTimestamps() Timestamps {
	return Timestamps{
		PTSOrig: UnsetTimestamp, PTS: UnsetTimestamp, PTSSys: UnsetTimestamp,
		DTSOrig: UnsetTimestamp, DTS: UnsetTimestamp, DTSSys: UnsetTimestamp,
	}
}

// ChunkMeta carries the optional per-chunk attributes described in
// spec.md §3 and §6: timestamps, a random-access-point system time, and a
// discontinuity flag.
type ChunkMeta struct {
	Timestamps
	SystimeRAP    Timestamp
	Discontinuity bool
}

// ByteChunk is an opaque, immutable byte buffer with optional metadata, as
// produced by the upstream caller of Framer.Input. A ByteChunk with no
// payload (Bytes == nil) is a metadata-only marker: its metadata is
// promoted into the framer's pending timestamps but no bytes are scanned.
type ByteChunk struct {
	Bytes []byte
	Meta  ChunkMeta
}
