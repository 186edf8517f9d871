/*
NAME
  picture.go

DESCRIPTION
  picture.go defines Picture, the framer's output unit, and the Sink and
  EventHandler interfaces a caller implements to receive framed pictures
  and framer lifecycle events.

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

// Picture is one framed MPEG-2 picture, annotated with everything the
// framer was able to derive from its prefix and header, per spec.md §6.
type Picture struct {
	Bytes []byte

	PictureNumber     int64
	TemporalReference uint16
	CodingType        uint8

	Duration uint64
	Fields   FieldFlags

	VBVDelay    uint64
	HaveVBVDelay bool

	Random        bool
	Discontinuity bool

	SystimeRAP Timestamp

	Timestamps
}

// IsRandomAccess reports whether data begins with an MPEG-2 sequence
// header start code. Downstream packetizers (e.g. container/mts) use this
// as the signal to insert PSI ahead of a picture, mirroring the condition
// the framer itself uses to set Picture.Random.
func IsRandomAccess(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01 && data[3] == codeSequenceHeader
}

// Sink receives framed pictures and the flow definition describing them.
// WriteFlowDef is called whenever the sequence changes in a way that
// alters FlowDef; WritePicture is called once per framed picture.
type Sink interface {
	WriteFlowDef(FlowDef) error
	WritePicture(Picture) error
}

// Event identifies a framer lifecycle notification, per spec.md §6.
type Event int

const (
	// EventReady fires the first time a sequence header is acquired.
	EventReady Event = iota
	// EventDead fires when the framer gives up due to a fatal error.
	EventDead
	// EventSyncAcquired fires whenever ACQUIRING finds a sequence start code.
	EventSyncAcquired
	// EventSyncLost fires whenever the framer drops back to ACQUIRING.
	EventSyncLost
)

// EventHandler receives framer lifecycle notifications. Implementations
// must not block; a nil EventHandler is valid and simply disables events.
type EventHandler interface {
	HandleEvent(Event)
}
