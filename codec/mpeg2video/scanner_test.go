/*
NAME
  scanner_test.go

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

import "testing"

func TestStartCodeScannerWholeBuffer(t *testing.T) {
	s := NewStartCodeScanner()
	b := []byte{0xDE, 0xAD, 0x00, 0x00, 0x01, 0xB3, 0x01, 0x02}
	pos, id, ok := s.Scan(b)
	if !ok {
		t.Fatalf("expected a match")
	}
	if pos != 6 {
		t.Errorf("pos = %d, want 6", pos)
	}
	if id != codeSequenceHeader {
		t.Errorf("id = 0x%x, want 0x%x", id, codeSequenceHeader)
	}
}

func TestStartCodeScannerSplitAcrossCalls(t *testing.T) {
	whole := []byte{0x00, 0x00, 0x00, 0x01, 0xB8, 0xFF}
	for split := 0; split <= len(whole); split++ {
		s := NewStartCodeScanner()
		var gotPos, offset int
		var gotID byte
		var gotOK bool
		for _, part := range [][]byte{whole[:split], whole[split:]} {
			pos, id, ok := s.Scan(part)
			if ok && !gotOK {
				gotPos, gotID, gotOK = offset+pos, id, true
			}
			offset += len(part)
		}
		if !gotOK {
			t.Fatalf("split %d: expected a match", split)
		}
		if gotPos != 5 {
			t.Errorf("split %d: pos = %d, want 5", split, gotPos)
		}
		if gotID != codeGroupStart {
			t.Errorf("split %d: id = 0x%x, want 0x%x", split, gotID, codeGroupStart)
		}
	}
}

func TestStartCodeScannerNoMatch(t *testing.T) {
	s := NewStartCodeScanner()
	b := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	pos, _, ok := s.Scan(b)
	if ok {
		t.Fatalf("expected no match")
	}
	if pos != len(b) {
		t.Errorf("pos = %d, want %d", pos, len(b))
	}
}

func TestStartCodeScannerResetClearsContext(t *testing.T) {
	s := NewStartCodeScanner()
	s.Scan([]byte{0x00, 0x00, 0x01})
	s.Reset()
	if s.Context() != idleContext {
		t.Errorf("context after reset = 0x%x, want 0x%x", s.Context(), idleContext)
	}
	pos, _, ok := s.Scan([]byte{0xB3})
	if ok {
		t.Errorf("expected no match after reset, got match at %d", pos)
	}
}

func TestStartCodeScannerConsecutiveMatches(t *testing.T) {
	s := NewStartCodeScanner()
	b := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0xB7}
	pos, id, ok := s.Scan(b)
	if !ok || pos != 4 || id != codePicture {
		t.Fatalf("first match = (%d, 0x%x, %v), want (4, 0x00, true)", pos, id, ok)
	}
	pos2, id2, ok2 := s.Scan(b[pos:])
	if !ok2 || pos2 != 4 || id2 != codeSequenceEnd {
		t.Fatalf("second match = (%d, 0x%x, %v), want (4, 0xb7, true)", pos2, id2, ok2)
	}
}
