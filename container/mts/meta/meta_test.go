/*
NAME
  meta_test.go

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package meta

import (
	"bytes"
	"encoding/binary"
	"testing"
)

const (
	TimestampKey = "ts"
	RateKey      = "rate"
	tstKey1      = RateKey
	tstData1     = "25.0"
	tstKey2      = TimestampKey
	tstData2     = "12345678"
	tstData3     = "30.0"
)

// TestAdd ensures that metadata added via Add ends up in the encoded output.
func TestAdd(t *testing.T) {
	m := New()
	m.Add(tstKey1, tstData1)
	m.Add(tstKey2, tstData2)

	got := m.Encode()
	want := tstKey1 + "=" + tstData1 + "\t" + tstKey2 + "=" + tstData2
	if !bytes.Equal(got[headSize:], []byte(want)) {
		t.Errorf("unexpected encoded data: got %q want %q", got[headSize:], want)
	}
}

// TestUpdate checks that Add updates a key in place rather than appending a
// duplicate entry.
func TestUpdate(t *testing.T) {
	m := New()
	m.Add(tstKey1, tstData1)
	m.Add(tstKey1, tstData3)

	got := m.Encode()
	want := tstKey1 + "=" + tstData3
	if !bytes.Equal(got[headSize:], []byte(want)) {
		t.Errorf("unexpected encoded data: got %q want %q", got[headSize:], want)
	}
}

// TestEncode checks that we're getting the correct byte slice from Data.Encode().
func TestEncode(t *testing.T) {
	m := New()
	m.Add(tstKey1, tstData1)
	m.Add(tstKey2, tstData2)

	dataLen := len(tstKey1+"="+tstData1+"\t"+tstKey2+"="+tstData2)
	header := [4]byte{0x00, 0x10}
	binary.BigEndian.PutUint16(header[2:4], uint16(dataLen))
	expectedOut := append(header[:], []byte(
		tstKey1+"="+tstData1+"\t"+
			tstKey2+"="+tstData2)...)

	got := m.Encode()
	if !bytes.Equal(expectedOut, got) {
		t.Errorf("Did not get expected out. \nGot : %v, \nwant: %v\n", got, expectedOut)
	}
}

// TestEncodeEmpty checks that an un-added Data instance encodes to just the header.
func TestEncodeEmpty(t *testing.T) {
	m := New()
	got := m.Encode()
	want := []byte{0x00, 0x10, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Did not get expected out. \nGot : %v, \nwant: %v\n", got, want)
	}
}
