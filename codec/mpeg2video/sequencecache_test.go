/*
NAME
  sequencecache_test.go

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

import "testing"

func sequenceHeaderBytes(t *testing.T, horizontal, vertical uint16, aspect, frameRateCode uint8) []byte {
	t.Helper()
	w := &bitWriter{}
	w.put(uint64(horizontal), 12)
	w.put(uint64(vertical), 12)
	w.put(uint64(aspect), 4)
	w.put(uint64(frameRateCode), 4)
	w.put(0, 18)
	w.put(0, 10)
	w.put(0, 8*SequenceHeaderSize-2-w.bitsLen())
	w.put(0, 2)
	return w.bytes()
}

func TestSequenceCacheObserveUnchanged(t *testing.T) {
	c := NewSequenceCache()
	header := sequenceHeaderBytes(t, 720, 480, Aspect4By3, 3)

	if unchanged := c.Observe(header, nil, nil); unchanged {
		t.Errorf("first Observe: unchanged = true, want false")
	}
	if unchanged := c.Observe(header, nil, nil); !unchanged {
		t.Errorf("second Observe with identical bytes: unchanged = false, want true")
	}

	header2 := sequenceHeaderBytes(t, 1280, 720, Aspect16By9, 5)
	if unchanged := c.Observe(header2, nil, nil); unchanged {
		t.Errorf("Observe with a different header: unchanged = true, want false")
	}
}

func TestSequenceCacheParseDerivesFlowDef(t *testing.T) {
	c := NewSequenceCache()
	header := sequenceHeaderBytes(t, 720, 480, Aspect4By3, 3)
	c.Observe(header, nil, nil)

	fd, err := c.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fd.HSize != 720 || fd.VSize != 480 {
		t.Errorf("FlowDef size = %dx%d, want 720x480", fd.HSize, fd.VSize)
	}
	if fd.FPS != (Rational{Num: 25, Den: 1}) {
		t.Errorf("FlowDef FPS = %+v, want 25/1", fd.FPS)
	}
	if !c.ProgressiveSequence() {
		t.Errorf("ProgressiveSequence() = false, want true (no extension means progressive)")
	}
}

func TestSequenceCacheNextPictureNumberMonotonic(t *testing.T) {
	c := NewSequenceCache()

	if got := c.NextPictureNumber(2); got != 2 {
		t.Errorf("NextPictureNumber(2) = %d, want 2", got)
	}
	// Reordered B picture with a lower temporal_reference than the last
	// advance doesn't move last_picture_number/last_temporal_reference.
	if got := c.NextPictureNumber(0); got != 0 {
		t.Errorf("NextPictureNumber(0) = %d, want 0", got)
	}
	if got := c.NextPictureNumber(1); got != 1 {
		t.Errorf("NextPictureNumber(1) = %d, want 1", got)
	}
	if got := c.NextPictureNumber(5); got != 5 {
		t.Errorf("NextPictureNumber(5) = %d, want 5", got)
	}
}

func TestSequenceCacheResetGOPKeepsPictureNumber(t *testing.T) {
	c := NewSequenceCache()
	c.NextPictureNumber(2)
	c.NextPictureNumber(5)

	c.ResetGOP()
	// A fresh GOP starts counting temporal_reference again from 0, but
	// picture numbering continues unbroken.
	if got := c.NextPictureNumber(0); got != 6 {
		t.Errorf("NextPictureNumber(0) after ResetGOP = %d, want 6", got)
	}
}

func TestSequenceCacheEmpty(t *testing.T) {
	c := NewSequenceCache()
	if !c.Empty() {
		t.Errorf("Empty() = false on a fresh cache, want true")
	}
	c.Observe(sequenceHeaderBytes(t, 720, 480, Aspect4By3, 3), nil, nil)
	if c.Empty() {
		t.Errorf("Empty() = true after Observe, want false")
	}
}
