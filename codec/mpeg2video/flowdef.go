/*
NAME
  flowdef.go

DESCRIPTION
  flowdef.go derives the output flow definition (spec.md §6) from a
  cached sequence header, its extension and its display extension:
  frame rate, SAR, chroma format, octet rates and plane descriptors.

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

import "fmt"

// ExpectedFlowDefPrefix is the flow-def prefix the framer advertises for
// its input, per spec.md §6.
const ExpectedFlowDefPrefix = "block.mpeg2video."

// frameRateTable maps the 4-bit frame_rate_code to a Rational frames per
// second. Index 0 and indices >= 14 are invalid. Indices 9-13 are the
// nonstandard Xing/bug-compatible codes called out in spec.md §9; they
// are accepted, not rejected.
var frameRateTable = [16]Rational{
	0:  {},
	1:  {Num: 24000, Den: 1001},
	2:  {Num: 24, Den: 1},
	3:  {Num: 25, Den: 1},
	4:  {Num: 30000, Den: 1001},
	5:  {Num: 30, Den: 1},
	6:  {Num: 50, Den: 1},
	7:  {Num: 60000, Den: 1001},
	8:  {Num: 60, Den: 1},
	9:  {Num: 15000, Den: 1001}, // nonstandard (Xing).
	10: {Num: 5000, Den: 1001},
	11: {Num: 10000, Den: 1001},
	12: {Num: 12000, Den: 1001},
	13: {Num: 15000, Den: 1001},
	14: {},
	15: {},
}

// Aspect ratio codes, per Table 6-3.
const (
	AspectSquare = 1
	Aspect4By3   = 2
	Aspect16By9  = 3
	Aspect221By1 = 4
)

// aspectRatioTable maps the aspect_ratio_information code to the (k, m)
// factors used to scale (vertical, horizontal) into a pixel SAR, per
// spec.md §4.4.
var aspectRatioTable = map[uint8][2]uint64{
	AspectSquare: {1, 1},
	Aspect4By3:   {4, 3},
	Aspect16By9:  {16, 9},
	Aspect221By1: {221, 100},
}

// Profile/level masks and octet rate caps, per spec.md §4.4. The level is
// the low nibble of profile_and_level_indication.
const (
	levelMask  = 0x0F
	levelLow       = 0xA
	levelMain      = 0x8
	levelHigh1440  = 0x6
	levelHigh      = 0x4
)

var maxOctetRateTable = map[uint8]uint64{
	levelLow:      500000,
	levelMain:     1875000,
	levelHigh1440: 7500000,
	levelHigh:     10000000,
}

// Chroma format codes, per Table 6-7.
const (
	Chroma420 = 1
	Chroma422 = 2
	Chroma444 = 3
)

// PlaneDescriptor describes one planar-picture plane's subsampling.
type PlaneDescriptor struct {
	Name       string
	HSubsample uint8
	VSubsample uint8
	BitDepth   uint8
}

// FlowDef is the decoded output flow definition described in spec.md §6.
type FlowDef struct {
	FlowDefString string
	FPS           Rational
	MaxOctetRate  uint64
	OctetRate     uint64
	CPBBuffer     uint64
	HSize, VSize  uint16
	HasVisible    bool
	HSizeVisible  uint16
	VSizeVisible  uint16
	Aspect        Rational
	ProfileLevel  uint8
	LowDelay      bool
	Macropixel    uint8
	Planes        []PlaneDescriptor
}

// deriveFlowDef combines a decoded sequence header with an optional
// sequence extension and optional sequence display extension into a
// FlowDef, per spec.md §4.4.
func deriveFlowDef(sh SequenceHeader, ext *SequenceExtension, disp *SequenceDisplayExtension) (FlowDef, error) {
	fps, err := deriveFPS(sh.FrameRateCode, ext)
	if err != nil {
		return FlowDef{}, err
	}

	var profileLevel uint8
	progressive := true
	chroma := uint8(Chroma420)
	lowDelay := false
	hSize, vSize := uint32(sh.Horizontal), uint32(sh.Vertical)
	if ext != nil {
		profileLevel = ext.ProfileLevel
		progressive = ext.Progressive
		chroma = ext.Chroma
		lowDelay = ext.LowDelay
		hSize |= uint32(ext.HorizontalHi) << 12
		vSize |= uint32(ext.VerticalHi) << 12
	}

	maxOctetRate, err := deriveMaxOctetRate(profileLevel, ext != nil)
	if err != nil {
		return FlowDef{}, err
	}

	planes, flowStr, err := deriveChroma(chroma)
	if err != nil {
		return FlowDef{}, err
	}

	bitRate := uint64(sh.BitRate)
	if ext != nil {
		bitRate |= uint64(ext.BitRateHi) << 18
	}

	vbvBuffer := uint64(sh.VBVBufferSize)
	if ext != nil {
		vbvBuffer |= uint64(ext.VBVBufferHi) << 10
	}

	aspect, err := deriveSAR(sh.Aspect, uint16(hSize), uint16(vSize))
	if err != nil {
		return FlowDef{}, err
	}

	fd := FlowDef{
		FlowDefString: flowStr,
		FPS:           fps,
		MaxOctetRate:  maxOctetRate,
		OctetRate:     bitRate * 400 / 8,
		CPBBuffer:     vbvBuffer * 16 * 1024 / 8,
		HSize:         uint16(hSize),
		VSize:         uint16(vSize),
		Aspect:        aspect,
		ProfileLevel:  profileLevel,
		LowDelay:      lowDelay,
		Macropixel:    1,
		Planes:        planes,
	}
	if disp != nil {
		fd.HasVisible = true
		fd.HSizeVisible = disp.Horizontal
		fd.VSizeVisible = disp.Vertical
	}
	_ = progressive // surfaced via TimingEngine, not FlowDef.
	return fd, nil
}

// deriveFPS computes the frame rate from the frame_rate_code and the
// sequence extension's num/den extension bits, per spec.md §4.4.
func deriveFPS(code uint8, ext *SequenceExtension) (Rational, error) {
	if code == 0 || int(code) >= 14 {
		return Rational{}, fmt.Errorf("frame rate code %d: %w", code, ErrInvalidStream)
	}
	base := frameRateTable[code]
	if ext == nil {
		return base, nil
	}
	num := base.Num * uint64(ext.FrameRateNumExt+1)
	den := base.Den * uint64(ext.FrameRateDenExt+1)
	return NewRational(num, den), nil
}

// deriveMaxOctetRate maps profile_and_level's low nibble to an octet rate
// cap. When ext is nil (MPEG-1-like stream), no level is advertised and
// the cap is left at zero.
func deriveMaxOctetRate(profileLevel uint8, haveExt bool) (uint64, error) {
	if !haveExt {
		return 0, nil
	}
	rate, ok := maxOctetRateTable[profileLevel&levelMask]
	if !ok {
		return 0, fmt.Errorf("profile level 0x%x: %w", profileLevel, ErrInvalidStream)
	}
	return rate, nil
}

// deriveChroma returns the plane descriptors and flow-def suffix for a
// chroma format code.
func deriveChroma(chroma uint8) ([]PlaneDescriptor, string, error) {
	y := PlaneDescriptor{Name: "y", HSubsample: 1, VSubsample: 1, BitDepth: 8}
	switch chroma {
	case Chroma420:
		return []PlaneDescriptor{
			y,
			{Name: "u", HSubsample: 2, VSubsample: 2, BitDepth: 8},
			{Name: "v", HSubsample: 2, VSubsample: 2, BitDepth: 8},
		}, ExpectedFlowDefPrefix + "pic.planar8_8_420.", nil
	case Chroma422:
		return []PlaneDescriptor{
			y,
			{Name: "u", HSubsample: 2, VSubsample: 1, BitDepth: 8},
			{Name: "v", HSubsample: 2, VSubsample: 1, BitDepth: 8},
		}, ExpectedFlowDefPrefix + "pic.planar8_8_422.", nil
	case Chroma444:
		return []PlaneDescriptor{
			y,
			{Name: "u", HSubsample: 1, VSubsample: 1, BitDepth: 8},
			{Name: "v", HSubsample: 1, VSubsample: 1, BitDepth: 8},
		}, ExpectedFlowDefPrefix + "pic.planar8_8_444.", nil
	default:
		return nil, "", fmt.Errorf("chroma format %d: %w", chroma, ErrInvalidStream)
	}
}

// deriveSAR computes the sample aspect ratio from the aspect_ratio_code
// and the coded picture dimensions, per spec.md §4.4.
func deriveSAR(aspect uint8, hsize, vsize uint16) (Rational, error) {
	km, ok := aspectRatioTable[aspect]
	if !ok {
		return Rational{}, fmt.Errorf("aspect ratio code %d: %w", aspect, ErrInvalidStream)
	}
	if aspect == AspectSquare {
		return NewRational(1, 1), nil
	}
	k, m := km[0], km[1]
	return NewRational(uint64(vsize)*k, uint64(hsize)*m), nil
}
