/*
NAME
  headers_test.go

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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// bitWriter is the test-only mirror of bitReader, used to build fixture
// byte slices with exact bit layouts.
type bitWriter struct {
	bits []byte // one bool per bit, MSB-first per byte
}

func (w *bitWriter) put(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *bitWriter) bytes() []byte {
	for len(w.bits)%8 != 0 {
		w.bits = append(w.bits, 0)
	}
	out := make([]byte, len(w.bits)/8)
	for i, b := range w.bits {
		out[i/8] = out[i/8]<<1 | b
	}
	return out
}

func TestDecodeSequenceHeader(t *testing.T) {
	w := &bitWriter{}
	w.put(720, 12)
	w.put(480, 12)
	w.put(Aspect4By3, 4)
	w.put(3, 4) // frame_rate_code = 25fps
	w.put(5000, 18)
	w.put(100, 10)
	w.put(0, 8*SequenceHeaderSize-2-w.bitsLen())
	w.put(0, 2) // no matrices
	data := w.bytes()

	got, err := DecodeSequenceHeader(data)
	if err != nil {
		t.Fatalf("DecodeSequenceHeader: %v", err)
	}
	want := SequenceHeader{
		Horizontal:    720,
		Vertical:      480,
		Aspect:        Aspect4By3,
		FrameRateCode: 3,
		BitRate:       5000,
		VBVBufferSize: 100,
	}
	if !cmp.Equal(got, want) {
		t.Errorf("DecodeSequenceHeader() mismatch (-got +want):\n%s", cmp.Diff(got, want))
	}
}

func (w *bitWriter) bitsLen() int { return len(w.bits) }

func TestDecodeSequenceHeaderShort(t *testing.T) {
	_, err := DecodeSequenceHeader(make([]byte, SequenceHeaderSize-1))
	if err == nil {
		t.Fatalf("expected an error for a short sequence header")
	}
}

func TestDecodeSequenceHeaderWithMatrices(t *testing.T) {
	w := &bitWriter{}
	w.put(176, 12)
	w.put(144, 12)
	w.put(AspectSquare, 4)
	w.put(5, 4)
	w.put(0, 18)
	w.put(0, 10)
	w.put(0, 8*SequenceHeaderSize-2-w.bitsLen())
	w.put(0b11, 2) // both matrices present
	data := w.bytes()
	intra := make([]byte, IntraMatrixSize)
	nonIntra := make([]byte, NonIntraMatrixSize)
	for i := range intra {
		intra[i] = byte(i)
	}
	for i := range nonIntra {
		nonIntra[i] = byte(255 - i)
	}
	data = append(data, intra...)
	data = append(data, nonIntra...)

	got, err := DecodeSequenceHeader(data)
	if err != nil {
		t.Fatalf("DecodeSequenceHeader: %v", err)
	}
	if !got.IntraMatrixPresent || !got.NonIntraMatrixPresent {
		t.Fatalf("matrix presence flags not set: %+v", got)
	}
	if !cmp.Equal(got.IntraMatrix, intra) {
		t.Errorf("IntraMatrix mismatch:\n%s", cmp.Diff(got.IntraMatrix, intra))
	}
	if !cmp.Equal(got.NonIntraMatrix, nonIntra) {
		t.Errorf("NonIntraMatrix mismatch:\n%s", cmp.Diff(got.NonIntraMatrix, nonIntra))
	}
}

func TestDecodeSequenceExtension(t *testing.T) {
	w := &bitWriter{}
	w.put(0x82, 8) // profile_and_level
	w.put(1, 1)    // progressive
	w.put(Chroma420, 2)
	w.put(0, 2) // horizontal_size_extension
	w.put(0, 2) // vertical_size_extension
	w.put(0, 12)
	w.put(0, 8)
	w.put(0, 1) // low_delay
	w.put(0, 2) // frame_rate_extension_n
	w.put(0, 5) // frame_rate_extension_d
	data := w.bytes()

	got, err := DecodeSequenceExtension(data)
	if err != nil {
		t.Fatalf("DecodeSequenceExtension: %v", err)
	}
	want := SequenceExtension{ProfileLevel: 0x82, Progressive: true, Chroma: Chroma420}
	if !cmp.Equal(got, want) {
		t.Errorf("DecodeSequenceExtension() mismatch:\n%s", cmp.Diff(got, want))
	}
}

func TestDecodeSequenceDisplayExtensionNoColor(t *testing.T) {
	w := &bitWriter{}
	w.put(1, 3) // video_format
	w.put(0, 1) // color_description_present
	w.put(640, 14)
	w.put(480, 14)
	w.put(0, 8*SeqDisplayBaseSize-w.bitsLen())
	got, err := DecodeSequenceDisplayExtension(w.bytes())
	if err != nil {
		t.Fatalf("DecodeSequenceDisplayExtension: %v", err)
	}
	want := SequenceDisplayExtension{VideoFormat: 1, Horizontal: 640, Vertical: 480}
	if !cmp.Equal(got, want) {
		t.Errorf("DecodeSequenceDisplayExtension() mismatch:\n%s", cmp.Diff(got, want))
	}
}

func TestSequenceDisplayExtensionSize(t *testing.T) {
	if got := SequenceDisplayExtensionSize(false); got != SeqDisplayBaseSize {
		t.Errorf("SequenceDisplayExtensionSize(false) = %d, want %d", got, SeqDisplayBaseSize)
	}
	if got := SequenceDisplayExtensionSize(true); got != SeqDisplayColorSize {
		t.Errorf("SequenceDisplayExtensionSize(true) = %d, want %d", got, SeqDisplayColorSize)
	}
}

func TestDecodeGOPHeader(t *testing.T) {
	w := &bitWriter{}
	w.put(0, 25) // time_code
	w.put(1, 1)  // closed_gop
	w.put(0, 1)  // broken_link
	data := w.bytes()

	got, err := DecodeGOPHeader(data)
	if err != nil {
		t.Fatalf("DecodeGOPHeader: %v", err)
	}
	if !got.ClosedGOP || got.BrokenLink {
		t.Errorf("DecodeGOPHeader() = %+v, want {ClosedGOP:true BrokenLink:false}", got)
	}
}

func TestDecodeGOPHeaderBrokenLink(t *testing.T) {
	w := &bitWriter{}
	w.put(0, 25)
	w.put(0, 1)
	w.put(1, 1)
	got, err := DecodeGOPHeader(w.bytes())
	if err != nil {
		t.Fatalf("DecodeGOPHeader: %v", err)
	}
	if got.ClosedGOP || !got.BrokenLink {
		t.Errorf("DecodeGOPHeader() = %+v, want {ClosedGOP:false BrokenLink:true}", got)
	}
}

func TestDecodePictureHeader(t *testing.T) {
	w := &bitWriter{}
	w.put(42, 10)
	w.put(PictureTypeP, 3)
	w.put(vbvDelayUnset, 16)
	got, err := DecodePictureHeader(w.bytes())
	if err != nil {
		t.Fatalf("DecodePictureHeader: %v", err)
	}
	want := PictureHeader{TemporalReference: 42, CodingType: PictureTypeP, VBVDelay: vbvDelayUnset}
	if !cmp.Equal(got, want) {
		t.Errorf("DecodePictureHeader() mismatch:\n%s", cmp.Diff(got, want))
	}
}

func TestDecodePictureCodingExtension(t *testing.T) {
	w := &bitWriter{}
	w.put(0, 16) // f_code, ignored
	w.put(1, 2)  // intra_dc_precision
	w.put(PictureStructureFrame, 2)
	w.put(1, 1) // top_field_first
	w.put(0, 1) // repeat_first_field
	w.put(1, 1) // progressive_frame
	w.put(0, 8*PictureCodingExtSize-w.bitsLen())
	got, err := DecodePictureCodingExtension(w.bytes())
	if err != nil {
		t.Fatalf("DecodePictureCodingExtension: %v", err)
	}
	want := PictureCodingExtension{
		IntraDCPrecision: 1,
		PictureStructure: PictureStructureFrame,
		TopFieldFirst:    true,
		ProgressiveFrame: true,
	}
	if !cmp.Equal(got, want) {
		t.Errorf("DecodePictureCodingExtension() mismatch:\n%s", cmp.Diff(got, want))
	}
}
