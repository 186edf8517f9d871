/*
NAME
  timing.go

DESCRIPTION
  timing.go implements the TimingEngine: picture duration derivation, VBV
  delay conversion to 27MHz ticks, and random-access-point timestamp
  propagation across picture types.

AUTHOR
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg2video

// UclockFreq is the framer's canonical time unit: 27MHz, per spec.md
// GLOSSARY.
const UclockFreq = 27_000_000

// vbvDelayUnset is the raw bitstream value meaning "no VBV delay known".
const vbvDelayUnset = 0xFFFF

// FieldFlags carries the per-picture field structure attributes of
// spec.md §4.6.
type FieldFlags struct {
	TopField      bool
	BottomField   bool
	TopFieldFirst bool
	Progressive   bool
}

// Duration computes a picture's presentation duration in 27MHz ticks,
// per spec.md §4.6, and the field flags to attach to the output.
func Duration(fps Rational, progressiveSequence bool, ext *PictureCodingExtension) (duration uint64, fields FieldFlags) {
	if fps.Num == 0 {
		return 0, FieldFlags{TopField: true, BottomField: true, Progressive: true}
	}
	base := UclockFreq * fps.Den / fps.Num

	if ext == nil {
		return base, FieldFlags{TopField: true, BottomField: true, Progressive: true}
	}

	fields = FieldFlags{
		TopField:      true,
		BottomField:   ext.PictureStructure != PictureStructureTop,
		TopFieldFirst: ext.TopFieldFirst,
		Progressive:   ext.ProgressiveFrame,
	}
	if ext.PictureStructure == PictureStructureBottom {
		fields.TopField = false
		fields.BottomField = true
	}

	switch {
	case progressiveSequence && ext.RepeatFirstField:
		mult := uint64(1)
		if ext.TopFieldFirst {
			mult = 2
		}
		duration = base * mult
	case ext.PictureStructure == PictureStructureFrame && ext.RepeatFirstField:
		duration = base + base/2
	case ext.PictureStructure != PictureStructureFrame:
		duration = base / 2
	default:
		duration = base
	}
	return duration, fields
}

// VBVDelay converts a raw 16-bit vbv_delay field (in 90kHz units) to
// 27MHz ticks. The second return value is false if the raw value is the
// "unknown" sentinel 0xFFFF.
func VBVDelay(raw uint16) (uint64, bool) {
	if raw == vbvDelayUnset {
		return 0, false
	}
	const vbvDelayFreq = 90000
	return uint64(raw) * UclockFreq / vbvDelayFreq, true
}

// rapState is the subset of SequenceCache/TimingEngine state involved in
// random-access-point propagation, per spec.md §4.6.
type rapState struct {
	systimeRAP    Timestamp
	systimeRAPRef Timestamp
}

// CollapseClosedGOP is applied once per frame that carries a GOP header
// with closed_gop set, before PropagateRAP runs for that frame's picture:
// a closed GOP's dependent pictures no longer need the previous GOP's
// reference, so the propagated ref collapses onto the current value.
func (s *rapState) CollapseClosedGOP() {
	s.systimeRAPRef = s.systimeRAP
}

// PropagateRAP updates rapState for a picture of the given type, and
// returns the systime_rap value to attach to that picture's output.
// current is the upstream-provided "current" RAP system time (promoted
// from the chunk containing this picture's start code).
func (s *rapState) PropagateRAP(codingType uint8, current Timestamp) Timestamp {
	switch codingType {
	case PictureTypeI:
		s.systimeRAPRef = s.systimeRAP
		s.systimeRAP = current
		return s.systimeRAP
	case PictureTypeP:
		s.systimeRAPRef = s.systimeRAP
		return s.systimeRAP
	default: // B.
		return s.systimeRAPRef
	}
}
