/*
NAME
  encoder_test.go

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/Comcast/gots/v2/packet"
	gotspes "github.com/Comcast/gots/v2/pes"

	"github.com/ausocean/mpeg2video/container/mts/meta"
	"github.com/ausocean/mpeg2video/container/mts/psi"
	"github.com/ausocean/utils/logging"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type destination struct {
	packets [][]byte
}

func (d *destination) Write(p []byte) (int, error) {
	tmp := make([]byte, PacketSize)
	copy(tmp, p)
	d.packets = append(d.packets, tmp)
	return len(p), nil
}

// TestEncodeMPEG2 checks that an MPEG-2 access unit beginning with a
// sequence header start code is correctly identified as a random access
// point (triggering PSI insertion) and packetized into a valid MPEG-TS
// stream whose PES payload reconstructs the original data.
func TestEncodeMPEG2(t *testing.T) {
	Meta = meta.New()

	const dataLength = 440

	// Generate test data that begins with an MPEG-2 sequence header start
	// code, so that keyFrame (mpeg2KeyFrame) reports it as a random access
	// point.
	data := make([]byte, 0, dataLength)
	data = append(data, 0x00, 0x00, 0x01, 0xB3)
	for i := len(data); i < dataLength; i++ {
		data = append(data, byte(i))
	}

	// Expect headers for PID 256 (video).
	// NB: timing fields like PCR are neglected.
	expectedHeaders := [][]byte{
		{
			0x47, // Sync byte.
			0x41, // TEI=0, PUSI=1, TP=0, PID=00001 (256).
			0x00, // PID(Cont)=00000000.
			0x30, // TSC=00, AFC=11(adaptation followed by payload), CC=0000(0).
			0x07, // AFL= 7.
			0x50, // DI=0,RAI=1,ESPI=0,PCRF=1,OPCRF=0,SPF=0,TPDF=0, AFEF=0.
		},
		{
			0x47, // Sync byte.
			0x01, // TEI=0, PUSI=0, TP=0, PID=00001 (256).
			0x00, // PID(Cont)=00000000.
			0x31, // TSC=00, AFC=11(adaptation followed by payload), CC=0001(1).
			0x01, // AFL= 1.
			0x00, // DI=0,RAI=0,ESPI=0,PCRF=0,OPCRF=0,SPF=0,TPDF=0, AFEF=0.
		},
		{
			0x47, // Sync byte.
			0x01, // TEI=0, PUSI=0, TP=0, PID=00001 (256).
			0x00, // PID(Cont)=00000000.
			0x32, // TSC=00, AFC=11(adaptation followed by payload), CC=0010(2).
			0x57, // AFL= 1+stuffingLen.
			0x00, // DI=0,RAI=0,ESPI=0,PCRF=0,OPCRF=0,SPF=0,TPDF=0, AFEF=0.
		},
	}

	dst := &destination{}
	e, err := NewEncoder(nopCloser{dst}, (*logging.TestLogger)(t), PacketBasedPSI(psiSendCount), Rate(25), MediaType(EncodeMPEG2))
	if err != nil {
		t.Fatalf("could not create MTS encoder, failed with error: %v", err)
	}

	_, err = e.Write(data)
	if err != nil {
		t.Fatalf("could not write data to encoder, failed with error: %v\n", err)
	}

	// Check headers.
	var expectedIdx int
	for _, p := range dst.packets {
		var _p packet.Packet
		copy(_p[:], p)
		pid := packet.Pid(&_p)
		if pid == PIDVideo {
			gotHeader := p[0:6]
			wantHeader := expectedHeaders[expectedIdx]
			if !bytes.Equal(gotHeader, wantHeader) {
				t.Errorf("did not get expected header for idx: %v.\n Got: %v\n Want: %v\n", expectedIdx, gotHeader, wantHeader)
			}
			expectedIdx++
		}
	}

	// Gather payload data from packets to form the total PES packet.
	var pesData []byte
	for _, p := range dst.packets {
		var _p packet.Packet
		copy(_p[:], p)
		pid := packet.Pid(&_p)
		if pid == PIDVideo {
			payload, err := packet.Payload(&_p)
			if err != nil {
				t.Fatalf("could not get payload from mts packet, failed with err: %v\n", err)
			}
			pesData = append(pesData, payload...)
		}
	}

	// Get data from the PES packet and compare with the original data.
	pesHeader, err := gotspes.NewPESHeader(pesData)
	if err != nil {
		t.Fatalf("got error from pes creation: %v\n", err)
	}
	got := pesHeader.Data()
	if !bytes.Equal(data, got) {
		t.Errorf("did not get expected result.\n Got: %v\n Want: %v\n", got, data)
	}
}

// TestEncodeMPEG2NonKeyFrame checks that an access unit not beginning with a
// sequence header does not cause PSI to be re-inserted mid-stream.
func TestEncodeMPEG2NonKeyFrame(t *testing.T) {
	Meta = meta.New()

	dst := &destination{}
	e, err := NewEncoder(nopCloser{dst}, (*logging.TestLogger)(t), Rate(25), MediaType(EncodeMPEG2))
	if err != nil {
		t.Fatalf("could not create MTS encoder, failed with error: %v", err)
	}

	// A picture payload (not a sequence header) should not trigger PSI.
	data := []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x02, 0x03}
	_, err = e.Write(data)
	if err != nil {
		t.Fatalf("could not write data to encoder, failed with error: %v\n", err)
	}

	for _, p := range dst.packets {
		var _p packet.Packet
		copy(_p[:], p)
		if packet.Pid(&_p) == PatPid || packet.Pid(&_p) == PmtPid {
			t.Errorf("unexpected PSI packet for non-key-frame write, PID: %v", packet.Pid(&_p))
		}
	}
}

const fps = 25

// TestMetaEncode1 checks that we can externally add a single metadata entry to
// the mts global Meta meta.Data struct and then successfully have the mts encoder
// write this to psi.
func TestMetaEncode1(t *testing.T) {
	Meta = meta.New()
	var buf bytes.Buffer
	e, err := NewEncoder(nopCloser{&buf}, (*logging.TestLogger)(t), MediaType(EncodeMPEG2))
	if err != nil {
		t.Fatalf("could not create encoder, failed with error: %v", err)
	}

	Meta.Add(TimestampKey, "12345678")
	if err := e.writePSI(); err != nil {
		t.Errorf("unexpected error: %v\n", err.Error())
	}
	out := buf.Bytes()
	got := out[PacketSize+4:]

	want := []byte{
		0x00, 0x02, 0xb0, 0x37, 0x00, 0x01, 0xc1, 0x00, 0x00, 0xe1, 0x00, 0xf0, 0x25,
		psi.MetadataTag, // Descriptor tag
		0x23,            // Length of bytes to follow
		0x00, 0x10, 0x00, 0x1f,
	}
	rate := WriteRateKey + "=" + fmt.Sprintf("%f", float64(defaultRate)) + "\t" + TimestampKey + "=12345678" // timestamp
	want = append(want, []byte(rate)...)                                                                     // writeRate
	want = append(want, []byte{0x02, 0xe1, 0x00, 0xf0, 0x00}...)
	want = psi.AddCRC(want)
	want = psi.AddPadding(want)
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected output. \n Got : %v\n, Want: %v\n", got, want)
	}
}

// TestMetaEncode2 checks that we can externally add two metadata entries to the
// Meta meta.Data global and then have the mts encoder successfully encode this
// into psi.
func TestMetaEncode2(t *testing.T) {
	Meta = meta.New()
	var buf bytes.Buffer
	e, err := NewEncoder(nopCloser{&buf}, (*logging.TestLogger)(t), MediaType(EncodeMPEG2))
	if err != nil {
		t.Fatalf("could not create MTS encoder, failed with error: %v", err)
	}

	Meta.Add(TimestampKey, "12345678")
	Meta.Add(LocationKey, "1234,4321,1234")
	if err := e.writePSI(); err != nil {
		t.Errorf("did not expect error: %v from writePSI", err.Error())
	}
	out := buf.Bytes()
	got := out[PacketSize+4:]
	want := []byte{
		0x00, 0x02, 0xb0, 0x4a, 0x00, 0x01, 0xc1, 0x00, 0x00, 0xe1, 0x00, 0xf0, 0x38,
		psi.MetadataTag, // Descriptor tag
		0x36,            // Length of bytes to follow
		0x00, 0x10, 0x00, 0x32,
	}
	s := WriteRateKey + "=" + fmt.Sprintf("%f", float64(defaultRate)) + "\t" +
		TimestampKey + "=12345678\t" + LocationKey + "=1234,4321,1234"
	want = append(want, []byte(s)...)
	want = append(want, []byte{0x02, 0xe1, 0x00, 0xf0, 0x00}...)
	want = psi.AddCRC(want)
	want = psi.AddPadding(want)
	if !bytes.Equal(got, want) {
		t.Errorf("did not get expected results.\ngot: %v\nwant: %v\n", got, want)
	}
}
