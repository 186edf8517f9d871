/*
NAME
  scanner.go

DESCRIPTION
  scanner.go implements StartCodeScanner, a resynchronizable scanner for
  32-bit MPEG start codes (00 00 01 XX) that maintains its accumulator
  across arbitrary buffer joins.

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

// Start code IDs, per ISO/IEC 13818-2.
const (
	codePicture          = 0x00
	codeSliceLowBound    = 0x01
	codeSliceHighBound   = 0xAF
	codeUserData         = 0xB2
	codeSequenceHeader   = 0xB3
	codeExtension        = 0xB5
	codeSequenceEnd      = 0xB7
	codeGroupStart       = 0xB8
)

// Extension start code IDs (the byte following a 0xB5 extension start
// code), per Table 6-18.
const (
	extIDSequence        = 0x1
	extIDSequenceDisplay = 0x2
	extIDPictureCoding   = 0x8
)

// idleContext is the scanner's accumulator value when no bytes have been
// seen yet, or after a deliberate reset; it can never be mistaken for a
// completed start code.
const idleContext uint32 = 0xFFFFFFFF

// StartCodeScanner walks a byte stream looking for 32-bit MPEG start
// codes, maintaining its accumulator across calls so that scanning a
// stream split into arbitrarily-sized buffers produces identical results
// to scanning the same bytes concatenated.
type StartCodeScanner struct {
	context uint32
}

// NewStartCodeScanner returns a StartCodeScanner ready to scan from an
// idle state.
func NewStartCodeScanner() *StartCodeScanner {
	return &StartCodeScanner{context: idleContext}
}

// Reset returns the scanner to its idle state, as if freshly constructed.
// This is used on resync (sync_lost) so that stale context bytes cannot
// produce a spurious match against new data.
func (s *StartCodeScanner) Reset() {
	s.context = idleContext
}

// Context returns the scanner's current 32-bit accumulator.
func (s *StartCodeScanner) Context() uint32 { return s.context }

// SetContext forcibly sets the scanner's accumulator, for resuming a scan
// over a region whose preceding four bytes are already known. The Framer
// does not call it: across a frame boundary it keeps the scanner's
// context as it is.
func (s *StartCodeScanner) SetContext(c uint32) { s.context = c }

// Scan walks b once, starting from the scanner's current context,
// returning the offset (within b) immediately after the first completed
// start code, the ID byte of that start code (the low byte of the final
// context), and whether a match was found. If no match is found, Scan
// returns len(b), the (unfinished) ID byte, and false; the scanner's
// context is left ready to continue across the next call.
func (s *StartCodeScanner) Scan(b []byte) (pos int, id byte, ok bool) {
	ctx := s.context
	for i, c := range b {
		ctx = ctx<<8 | uint32(c)
		if ctx&0xFFFFFF00 == 0x00000100 {
			s.context = ctx
			return i + 1, byte(ctx), true
		}
	}
	s.context = ctx
	return len(b), byte(ctx), false
}
