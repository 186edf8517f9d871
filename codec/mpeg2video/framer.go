/*
NAME
  framer.go

DESCRIPTION
  framer.go implements Framer, the frame-boundary state machine described
  in spec.md §4: it scans an arbitrary-boundary byte stream for MPEG-2
  start codes, assembles complete pictures, derives their metadata, and
  emits them (and flow-definition changes) to a Sink.

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

import (
	"fmt"

	"github.com/ausocean/utils/logging"
)

// framerState is the top-level state of the frame-boundary state machine,
// per spec.md §4.5.
type framerState int

const (
	stateAcquiring framerState = iota
	stateBetween
	stateInside
)

// noOffset marks a FrameBuildState offset field as unrecorded.
const noOffset = -1

// frameBuildState accumulates what's known about the frame currently
// under construction, per spec.md §4.5.
type frameBuildState struct {
	nextFrameSequence bool

	sequenceExtOffset     int
	sequenceDisplayOffset int
	gopOffset             int
	pictureOffset         int
	pictureExtOffset      int

	sliceSeen            bool
	carrierDiscontinuity bool
}

func newFrameBuildState() frameBuildState {
	return frameBuildState{
		sequenceExtOffset:     noOffset,
		sequenceDisplayOffset: noOffset,
		gopOffset:             noOffset,
		pictureOffset:         noOffset,
		pictureExtOffset:      noOffset,
	}
}

// Framer consumes an arbitrary-boundary MPEG-2 video elementary byte
// stream and emits framed pictures to a Sink. The zero value is not
// usable; construct one with NewFramer.
type Framer struct {
	scanner *StartCodeScanner
	stream  *BufferStream
	cache   *SequenceCache

	state framerState
	build frameBuildState

	// scanned is the number of bytes, counted from the current logical
	// stream head, that the scanner has already processed for the
	// in-construction frame (or, while ACQUIRING, since the last discard).
	scanned int

	// pendingExtAt, when >= 0, is the absolute offset of the byte
	// following a matched 0xB5 extension start code whose selector byte
	// hasn't arrived yet; pendingExtCodeStart is that start code's offset.
	pendingExtAt        int
	pendingExtCodeStart int

	promotedUpTo int

	pending           Timestamps
	currentSystimeRAP Timestamp

	invalidSequence bool
	everAcquired    bool

	sink           Sink
	insertSequence bool
	maxFrameSize   int
	log            logging.Logger
	events         EventHandler
}

// NewFramer returns a Framer configured by opts. WithSink is mandatory.
func NewFramer(opts ...func(*Framer) error) (*Framer, error) {
	f := &Framer{
		scanner:           NewStartCodeScanner(),
		stream:            NewBufferStream(),
		cache:             NewSequenceCache(),
		state:             stateAcquiring,
		build:             newFrameBuildState(),
		pendingExtAt:      noOffset,
		pending:           unsetTimestamps(),
		currentSystimeRAP: UnsetTimestamp,
		maxFrameSize:      defaultMaxFrameSize,
		log:               noopLogger{},
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("mpeg2video: applying framer option: %w", err)
		}
	}
	if f.sink == nil {
		return nil, fmt.Errorf("mpeg2video: NewFramer requires WithSink")
	}
	return f, nil
}

// raiseEvent notifies the configured EventHandler, if any.
func (f *Framer) raiseEvent(e Event) {
	if f.events != nil {
		f.events.HandleEvent(e)
	}
}

// Input feeds one ByteChunk into the framer. A ByteChunk with nil Bytes is
// a metadata-only marker: its metadata is promoted into pending state
// without scanning, per spec.md §3.
func (f *Framer) Input(chunk ByteChunk) error {
	if chunk.Bytes == nil {
		f.applyPendingMeta(chunk.Meta)
		return nil
	}

	if chunk.Meta.Discontinuity {
		if !f.build.sliceSeen {
			f.log.Info("discontinuity before slice header, resyncing")
			f.destructiveReset()
		} else {
			f.build.carrierDiscontinuity = true
		}
	}

	f.stream.Append(chunk)
	return f.drain()
}

// applyPendingMeta latches a chunk's timestamp channels and RAP system
// time into the framer's pending state.
func (f *Framer) applyPendingMeta(m ChunkMeta) {
	if m.PTSOrig.Set() {
		f.pending.PTSOrig = m.PTSOrig
	}
	if m.PTS.Set() {
		f.pending.PTS = m.PTS
	}
	if m.PTSSys.Set() {
		f.pending.PTSSys = m.PTSSys
	}
	if m.DTSOrig.Set() {
		f.pending.DTSOrig = m.DTSOrig
	}
	if m.DTS.Set() {
		f.pending.DTS = m.DTS
	}
	if m.DTSSys.Set() {
		f.pending.DTSSys = m.DTSSys
	}
	if m.SystimeRAP.Set() {
		f.currentSystimeRAP = m.SystimeRAP
	}
}

// promoteUpTo promotes the metadata of every chunk newly reached by
// scanning progress in [promotedUpTo, scanned).
func (f *Framer) promoteUpTo(scanned int) {
	if scanned <= f.promotedUpTo {
		return
	}
	metas := f.stream.MetasInRange(f.promotedUpTo, scanned)
	f.promotedUpTo = scanned
	for _, m := range metas {
		f.applyPendingMeta(m)
	}
}

// rebase shifts promotedUpTo and scanned down by n bytes, after n bytes
// have been removed from the front of the stream (by Consume or Extract).
func (f *Framer) rebase(n int) {
	f.promotedUpTo -= n
	if f.promotedUpTo < 0 {
		f.promotedUpTo = 0
	}
	if f.pendingExtAt >= 0 {
		f.pendingExtAt -= n
		f.pendingExtCodeStart -= n
	}
}

// drain scans every start code currently available in the buffered
// stream, advancing the state machine and emitting complete frames.
func (f *Framer) drain() error {
	for {
		if f.pendingExtAt >= 0 {
			sel, err := f.stream.Peek(f.pendingExtAt, 1)
			if err != nil {
				return nil // selector byte not arrived yet; wait for more input.
			}
			f.resolveExtension(f.pendingExtCodeStart, sel[0])
			f.pendingExtAt = noOffset
		}

		span := f.stream.ReadSpan(f.scanned)
		if len(span) == 0 {
			return nil
		}
		pos, id, ok := f.scanner.Scan(span)
		f.scanned += pos
		f.promoteUpTo(f.scanned)
		if !ok {
			if f.maxFrameSize > 0 && f.state != stateAcquiring && f.scanned > f.maxFrameSize {
				return f.handleOversizeFrame()
			}
			return nil
		}

		codeStart := f.scanned - 4
		if err := f.handleMatch(codeStart, id); err != nil {
			return err
		}
	}
}

// handleMatch dispatches a matched start code according to the current
// top-level state, per spec.md §4.5's transition table.
func (f *Framer) handleMatch(codeStart int, id byte) error {
	switch f.state {
	case stateAcquiring:
		return f.handleAcquiring(id)
	case stateBetween:
		return f.handleBetween(codeStart, id)
	case stateInside:
		return f.handleInside(codeStart, id)
	default:
		return nil
	}
}

func (f *Framer) handleAcquiring(id byte) error {
	switch id {
	case codeSequenceHeader:
		// Discard everything up to, but not including, this start code:
		// it becomes byte 0 of the new frame.
		if err := f.stream.Consume(f.scanned - 4); err != nil {
			return f.fatalAlloc(err)
		}
		f.rebase(f.scanned - 4)
		f.scanned = 4
		f.build = newFrameBuildState()
		f.build.nextFrameSequence = true
		f.state = stateBetween
		if !f.everAcquired {
			f.raiseEvent(EventReady)
		}
		f.everAcquired = true
		f.raiseEvent(EventSyncAcquired)
		f.log.Info("sequence start code found, sync acquired")
	case codePicture:
		// Not yet acquired; whatever was pending was for skipped data.
		if err := f.discardAcquiring(); err != nil {
			return err
		}
		f.pending = unsetTimestamps()
	default:
		if err := f.discardAcquiring(); err != nil {
			return err
		}
		f.pending = unsetTimestamps()
	}
	return nil
}

// discardAcquiring drops everything scanned so far while ACQUIRING.
func (f *Framer) discardAcquiring() error {
	if err := f.stream.Consume(f.scanned); err != nil {
		return f.fatalAlloc(err)
	}
	f.rebase(f.scanned)
	f.scanned = 0
	return nil
}

func (f *Framer) handleBetween(codeStart int, id byte) error {
	switch {
	case id == codeExtension:
		f.pendingExtAt = f.scanned
		f.pendingExtCodeStart = codeStart
	case id == codeGroupStart:
		f.build.gopOffset = codeStart
	case id == codePicture:
		f.build.pictureOffset = codeStart
		f.state = stateInside
	case id == codeUserData:
		// Ignore.
	default:
		// Unrecognized code between structural headers: ignore and keep
		// scanning rather than losing sync over it.
	}
	return nil
}

func (f *Framer) handleInside(codeStart int, id byte) error {
	switch {
	case id == codeExtension:
		f.pendingExtAt = f.scanned
		f.pendingExtCodeStart = codeStart
	case id >= codeSliceLowBound && id <= codeSliceHighBound:
		f.build.sliceSeen = true
	case id == codeUserData:
		// Ignore.
	case id == codeSequenceHeader || id == codeGroupStart || id == codePicture || id == codeSequenceEnd:
		return f.frameBoundary(codeStart, id)
	default:
		// Ignore.
	}
	return nil
}

// resolveExtension records the sequence/picture extension offset once its
// selector byte (the byte following the match) is known. The standard
// only defines the low 4 bits of this byte as extension_start_code_id;
// this decoder matches the whole byte, so it never needs to mask it, but
// a real stream with non-zero high bits there wouldn't match extIDSequence
// et al.
func (f *Framer) resolveExtension(codeStart int, selector byte) {
	switch selector {
	case extIDSequence:
		f.build.sequenceExtOffset = codeStart
	case extIDSequenceDisplay:
		f.build.sequenceDisplayOffset = codeStart
	case extIDPictureCoding:
		f.build.pictureExtOffset = codeStart
	}
}

// frameBoundary handles a structural start code observed in INSIDE,
// completing the in-construction frame, per spec.md §4.5's "Frame
// boundary" rule.
func (f *Framer) frameBoundary(codeStart int, id byte) error {
	frameLen := f.scanned
	keep := 4
	if id != codeSequenceEnd {
		frameLen -= 4 // the matched code belongs to the next frame.
	} else {
		keep = 0 // END belongs to the current frame.
	}

	raw, err := f.stream.Extract(frameLen)
	if err != nil {
		return f.fatalAlloc(err)
	}
	f.rebase(frameLen)

	built := f.build
	emitErr := f.emitFrame(raw.Bytes, built)

	f.build = newFrameBuildState()
	if emitErr != nil {
		f.log.Warning("frame decode error, resyncing", "error", emitErr)
		f.scanner.Reset()
		f.scanned = 0
		f.state = stateAcquiring
		f.raiseEvent(EventSyncLost)
		return nil
	}

	f.scanned = keep
	switch id {
	case codeSequenceHeader:
		f.build.nextFrameSequence = true
		f.state = stateBetween
	case codeGroupStart:
		f.build.gopOffset = 0
		f.state = stateBetween
	case codePicture:
		f.build.pictureOffset = 0
		f.state = stateInside
	case codeSequenceEnd:
		f.state = stateAcquiring
		f.raiseEvent(EventSyncLost)
		f.log.Info("end of sequence code, sync lost")
	}
	return nil
}

// handleOversizeFrame aborts the in-construction frame once it exceeds
// maxFrameSize, per spec.md §5.
func (f *Framer) handleOversizeFrame() error {
	f.log.Error("frame exceeds maximum size, resyncing", "size", f.scanned, "max", f.maxFrameSize)
	if err := f.stream.Consume(f.scanned); err != nil {
		return f.fatalAlloc(err)
	}
	f.rebase(f.scanned)
	f.scanned = 0
	f.scanner.Reset()
	f.build = newFrameBuildState()
	f.state = stateAcquiring
	f.raiseEvent(EventSyncLost)
	return nil
}

// destructiveReset implements the "discontinuity before slice header"
// error recovery path of spec.md §4.5: the whole buffered stream is
// abandoned and scanning restarts from ACQUIRING.
func (f *Framer) destructiveReset() {
	f.stream.Reset()
	f.scanner.Reset()
	f.scanned = 0
	f.promotedUpTo = 0
	f.pendingExtAt = noOffset
	f.build = newFrameBuildState()
	f.pending = unsetTimestamps()
	f.state = stateAcquiring
	f.raiseEvent(EventSyncLost)
}

// fatalAlloc reports the only fatal error kind the framer produces: a
// buffer operation failed unexpectedly. Per spec.md §7, the instance must
// be discarded after this.
func (f *Framer) fatalAlloc(cause error) error {
	f.log.Error("buffer allocation failed, framer is no longer usable", "error", cause)
	f.raiseEvent(EventDead)
	return fmt.Errorf("%w: %v", ErrAlloc, cause)
}

// sequenceRegions slices a frame's prefix into its sequence header,
// sequence extension, sequence display extension and GOP header
// sub-regions, per the offsets recorded in b.
func sequenceRegions(raw []byte, b frameBuildState) (header, ext, disp, gop []byte) {
	type entry struct {
		off  int
		kind byte
	}
	var ents []entry
	if b.nextFrameSequence {
		ents = append(ents, entry{0, 'H'})
	}
	if b.sequenceExtOffset >= 0 {
		ents = append(ents, entry{b.sequenceExtOffset, 'E'})
	}
	if b.sequenceDisplayOffset >= 0 {
		ents = append(ents, entry{b.sequenceDisplayOffset, 'D'})
	}
	if b.gopOffset >= 0 {
		ents = append(ents, entry{b.gopOffset, 'G'})
	}
	for i := 0; i < len(ents); i++ {
		for j := i + 1; j < len(ents); j++ {
			if ents[j].off < ents[i].off {
				ents[i], ents[j] = ents[j], ents[i]
			}
		}
	}
	end := len(raw)
	if b.pictureOffset >= 0 {
		end = b.pictureOffset
	}
	for i, e := range ents {
		start := e.off + 4
		if e.kind == 'E' || e.kind == 'D' {
			start = e.off + 5
		}
		stop := end
		if i+1 < len(ents) {
			stop = ents[i+1].off
		}
		if start > stop || start > len(raw) {
			continue
		}
		if stop > len(raw) {
			stop = len(raw)
		}
		blob := raw[start:stop]
		switch e.kind {
		case 'H':
			header = blob
		case 'E':
			ext = blob
		case 'D':
			disp = blob
		case 'G':
			gop = blob
		}
	}
	return header, ext, disp, gop
}

// injectedSequence reconstructs the start codes around a cached sequence
// header/extension/display extension so they can be prepended to an I
// picture that doesn't carry its own, per spec.md §6's insert_sequence
// option.
func injectedSequence(c *SequenceCache) []byte {
	var out []byte
	out = append(out, 0x00, 0x00, 0x01, codeSequenceHeader)
	out = append(out, c.Header()...)
	if ext := c.Ext(); len(ext) > 0 {
		out = append(out, 0x00, 0x00, 0x01, codeExtension, extIDSequence)
		out = append(out, ext...)
	}
	if disp := c.Display(); len(disp) > 0 {
		out = append(out, 0x00, 0x00, 0x01, codeExtension, extIDSequenceDisplay)
		out = append(out, disp...)
	}
	return out
}

// emitFrame implements the frame emission procedure of spec.md §4.5.1:
// freezing and attaching timestamps, updating the sequence cache, parsing
// the picture header, computing duration and discontinuity, and writing
// the result to the sink.
func (f *Framer) emitFrame(raw []byte, b frameBuildState) error {
	frozen := f.pending
	f.pending = unsetTimestamps()

	if b.nextFrameSequence {
		header, ext, disp, _ := sequenceRegions(raw, b)
		unchanged := f.cache.Observe(header, ext, disp)
		if !unchanged {
			fd, err := f.cache.Parse()
			if err != nil {
				f.invalidSequence = true
				f.log.Warning("invalid sequence parameters, skipping flow def", "error", err)
			} else {
				f.invalidSequence = false
				if err := f.sink.WriteFlowDef(fd); err != nil {
					return fmt.Errorf("writing flow def: %w", err)
				}
			}
		}
	}

	if f.invalidSequence {
		f.log.Debug("dropping frame in invalid sequence")
		return nil
	}

	if b.gopOffset >= 0 {
		_, _, _, gopBlob := sequenceRegions(raw, b)
		f.cache.ResetGOP()
		gh, err := DecodeGOPHeader(gopBlob)
		if err != nil {
			return fmt.Errorf("decoding gop header: %w", err)
		}
		f.cache.closedGOP = gh.ClosedGOP
		f.cache.brokenLink = gh.BrokenLink
		if gh.ClosedGOP {
			f.cache.CollapseClosedGOP()
		}
	}

	if b.pictureOffset < 0 || b.pictureOffset+PictureHeaderSize > len(raw) {
		return fmt.Errorf("picture header: %w", ErrHeaderShort)
	}
	ph, err := DecodePictureHeader(raw[b.pictureOffset+4:])
	if err != nil {
		return fmt.Errorf("decoding picture header: %w", err)
	}

	var pce *PictureCodingExtension
	if b.pictureExtOffset >= 0 {
		e, err := DecodePictureCodingExtension(raw[b.pictureExtOffset+5:])
		if err != nil {
			return fmt.Errorf("decoding picture coding extension: %w", err)
		}
		pce = &e
		if e.IntraDCPrecision > 0 {
			f.log.Debug("non-zero intra_dc_precision, picture accepted", "intraDCPrecision", e.IntraDCPrecision)
		}
	}

	pictureNumber := f.cache.NextPictureNumber(int64(ph.TemporalReference))
	discontinuity := f.cache.brokenLink || (!f.cache.closedGOP && b.carrierDiscontinuity)

	duration, fields := Duration(f.cache.FPS(), f.cache.ProgressiveSequence(), pce)

	random := false
	if ph.CodingType == PictureTypeI {
		switch {
		case b.nextFrameSequence:
			random = true
		case f.insertSequence && !f.cache.Empty():
			raw = append(injectedSequence(f.cache), raw...)
			random = true
		}
	}

	systimeRAP := f.cache.PropagateRAP(ph.CodingType, f.currentSystimeRAP)

	vbvDelay, haveVBV := VBVDelay(ph.VBVDelay)

	pic := Picture{
		Bytes:             raw,
		PictureNumber:     pictureNumber,
		TemporalReference: ph.TemporalReference,
		CodingType:        ph.CodingType,
		Duration:          duration,
		Fields:            fields,
		VBVDelay:          vbvDelay,
		HaveVBVDelay:      haveVBV,
		Random:            random,
		Discontinuity:     discontinuity,
		SystimeRAP:        systimeRAP,
		Timestamps:        frozen,
	}
	if err := f.sink.WritePicture(pic); err != nil {
		return fmt.Errorf("writing picture: %w", err)
	}

	if !f.pending.DTSOrig.Set() && frozen.DTSOrig.Set() {
		f.pending.DTSOrig = Timestamp(uint64(frozen.DTSOrig) + duration)
	}
	if !f.pending.DTS.Set() && frozen.DTS.Set() {
		f.pending.DTS = Timestamp(uint64(frozen.DTS) + duration)
	}
	if !f.pending.DTSSys.Set() && frozen.DTSSys.Set() {
		f.pending.DTSSys = Timestamp(uint64(frozen.DTSSys) + duration)
	}
	return nil
}
