/*
NAME
  sequencecache.go

DESCRIPTION
  sequencecache.go implements SequenceCache, which holds the most
  recently committed sequence header, extension and display extension as
  opaque byte blobs, detects unchanged sequences, and supplies the flow
  definition and prepended copies used to inject a sequence ahead of an
  I-picture.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mpeg2video

import "bytes"

// SequenceCache holds the latest committed sequence header, extension and
// display extension, plus the timing/chroma state derived from them.
type SequenceCache struct {
	header, ext, display []byte

	progressiveSequence bool
	fps                  Rational
	sar                  Rational

	lastPictureNumber     int64
	lastTemporalReference int64

	closedGOP  bool
	brokenLink bool

	rap rapState

	flowDef    FlowDef
	haveFlowDef bool
}

// NewSequenceCache returns an empty SequenceCache.
func NewSequenceCache() *SequenceCache {
	return &SequenceCache{
		lastPictureNumber:     -1,
		lastTemporalReference: -1,
		rap: rapState{
			systimeRAP:    UnsetTimestamp,
			systimeRAPRef: UnsetTimestamp,
		},
	}
}

// CollapseClosedGOP forwards to the cache's random-access-point state;
// see rapState.CollapseClosedGOP.
func (c *SequenceCache) CollapseClosedGOP() { c.rap.CollapseClosedGOP() }

// PropagateRAP forwards to the cache's random-access-point state; see
// rapState.PropagateRAP.
func (c *SequenceCache) PropagateRAP(codingType uint8, current Timestamp) Timestamp {
	return c.rap.PropagateRAP(codingType, current)
}

// blobsEqual reports whether a and b are byte-identical, treating both
// nil (or both zero-length) as equal.
func blobsEqual(a, b []byte) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return bytes.Equal(a, b)
}

// Observe compares header, ext and display against the cached copies. If
// all three are byte-identical (nil treated as equal on both sides), the
// cache still rotates its storage (so old allocations are released) and
// returns unchanged=true. Otherwise all three slots are replaced and
// unchanged=false is returned.
func (c *SequenceCache) Observe(header, ext, display []byte) (unchanged bool) {
	unchanged = blobsEqual(header, c.header) && blobsEqual(ext, c.ext) && blobsEqual(display, c.display)
	c.header = dup(header)
	c.ext = dup(ext)
	c.display = dup(display)
	return unchanged
}

func dup(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Header, Ext and Display return the cached blobs, for use by callers
// that inject a duplicate sequence ahead of an I picture.
func (c *SequenceCache) Header() []byte  { return c.header }
func (c *SequenceCache) Ext() []byte     { return c.ext }
func (c *SequenceCache) Display() []byte { return c.display }

// Empty reports whether no sequence header has ever been cached.
func (c *SequenceCache) Empty() bool { return len(c.header) == 0 }

// Parse decodes the cached blobs into a FlowDef and caches the
// progressive_sequence flag and fps needed by the timing engine.
func (c *SequenceCache) Parse() (FlowDef, error) {
	sh, err := DecodeSequenceHeader(c.header)
	if err != nil {
		return FlowDef{}, err
	}

	var extPtr *SequenceExtension
	if len(c.ext) > 0 {
		e, err := DecodeSequenceExtension(c.ext)
		if err != nil {
			return FlowDef{}, err
		}
		extPtr = &e
	}

	var dispPtr *SequenceDisplayExtension
	if len(c.display) > 0 {
		d, err := DecodeSequenceDisplayExtension(c.display)
		if err != nil {
			return FlowDef{}, err
		}
		dispPtr = &d
	}

	fd, err := deriveFlowDef(sh, extPtr, dispPtr)
	if err != nil {
		return FlowDef{}, err
	}

	c.progressiveSequence = extPtr == nil || extPtr.Progressive
	c.fps = fd.FPS
	c.sar = fd.Aspect
	c.flowDef = fd
	c.haveFlowDef = true
	return fd, nil
}

// FlowDef returns the most recently parsed flow definition, if any.
func (c *SequenceCache) FlowDef() (FlowDef, bool) { return c.flowDef, c.haveFlowDef }

// ProgressiveSequence reports whether the cached sequence is progressive.
func (c *SequenceCache) ProgressiveSequence() bool { return c.progressiveSequence }

// FPS returns the cached frame rate.
func (c *SequenceCache) FPS() Rational { return c.fps }

// NextPictureNumber computes the picture number for a picture with the
// given temporal reference, advancing the cache's last-seen state only
// when temporalReference is newer (per spec.md §3's monotonicity rule).
func (c *SequenceCache) NextPictureNumber(temporalReference int64) int64 {
	number := c.lastPictureNumber + (temporalReference - c.lastTemporalReference)
	if temporalReference > c.lastTemporalReference {
		c.lastPictureNumber = number
		c.lastTemporalReference = temporalReference
	}
	return number
}

// ResetGOP resets the temporal reference baseline at the start of a new
// GOP, per spec.md §3.
func (c *SequenceCache) ResetGOP() {
	c.lastTemporalReference = -1
}
