/*
NAME
  options.go

DESCRIPTION
  options.go provides option functions passed to NewFramer for framer
  configuration: sequence re-insertion ahead of I pictures, the maximum
  size of an in-construction frame, logging and lifecycle event delivery.

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

import "github.com/ausocean/utils/logging"

// defaultMaxFrameSize is the size cap applied when WithMaxFrameSize isn't
// given, per spec.md §5.
const defaultMaxFrameSize = 8 << 20

// WithSequenceInsertion toggles whether a duplicate of the cached sequence
// header (and extension/display extension, if cached) is prepended to
// every I picture that doesn't already carry its own sequence header.
// Off by default.
func WithSequenceInsertion(on bool) func(*Framer) error {
	return func(f *Framer) error {
		f.insertSequence = on
		return nil
	}
}

// WithMaxFrameSize sets the maximum number of bytes an in-construction
// frame may reach. A frame that grows past it is dropped, logged at Error,
// and the framer resyncs and raises EventSyncLost; no error is returned
// from Input. A non-positive n is rejected with ErrFrameTooLarge.
func WithMaxFrameSize(n int) func(*Framer) error {
	return func(f *Framer) error {
		if n <= 0 {
			return ErrFrameTooLarge
		}
		f.maxFrameSize = n
		return nil
	}
}

// WithLogger supplies the logger the framer reports decode errors,
// discontinuities and resyncs to. If omitted, a no-op logger is used.
func WithLogger(l logging.Logger) func(*Framer) error {
	return func(f *Framer) error {
		f.log = l
		return nil
	}
}

// WithEventHandler supplies the handler that receives lifecycle events
// (ready, dead, sync_acquired, sync_lost). If omitted, events are dropped.
func WithEventHandler(h EventHandler) func(*Framer) error {
	return func(f *Framer) error {
		f.events = h
		return nil
	}
}

// WithSink supplies the downstream consumer of flow definitions and
// framed pictures. Required; NewFramer returns an error without one.
func WithSink(s Sink) func(*Framer) error {
	return func(f *Framer) error {
		f.sink = s
		return nil
	}
}

// noopLogger discards everything; used when WithLogger is not given.
type noopLogger struct{}

func (noopLogger) SetLevel(int8)                              {}
func (noopLogger) Log(level int8, message string, p ...interface{}) {}
func (noopLogger) Debug(message string, p ...interface{})     {}
func (noopLogger) Info(message string, p ...interface{})       {}
func (noopLogger) Warning(message string, p ...interface{})    {}
func (noopLogger) Error(message string, p ...interface{})      {}
