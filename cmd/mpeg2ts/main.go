/*
NAME
  mpeg2ts/main.go

DESCRIPTION
  This program frames a raw ISO/IEC 13818-2 (MPEG-2) video elementary
  stream, read in arbitrary-sized chunks from the in file, and prints one
  line of metadata per emitted picture. If the out flag is given, the
  framed pictures are also packetized into an MPEG-TS file at that path.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/mpeg2video/codec/mpeg2video"
	"github.com/ausocean/mpeg2video/container/mts"
	"github.com/ausocean/mpeg2video/container/mts/meta"
	"github.com/ausocean/utils/logging"
)

const (
	errBadInPath     = "No file path provided, or file does not exist"
	errCantCreateOut = "Can't create output file"
	errReadFail      = "Read failed"
)

const (
	inUsage          = "The path to the raw MPEG-2 elementary stream to packetize"
	outUsage         = "Output MPEG-TS file path; if empty, no MPEG-TS file is written"
	chunkUsage       = "Number of bytes read from in per Input call"
	logLevelUsage    = "Specifies log level"
	defaultChunkSize = 32 * 1024
)

// printSink logs a line for every flow definition change and every framed
// picture, and forwards picture bytes to enc if enc is non-nil.
type printSink struct {
	enc *mts.Encoder
	log logging.Logger
}

func (s *printSink) WriteFlowDef(fd mpeg2video.FlowDef) error {
	s.log.Info("flow definition changed", "flowDef", fd.FlowDefString, "width", fd.HSize, "height", fd.VSize, "fps", fd.FPS)
	return nil
}

func (s *printSink) WritePicture(p mpeg2video.Picture) error {
	s.log.Info("picture framed",
		"number", p.PictureNumber,
		"codingType", p.CodingType,
		"bytes", len(p.Bytes),
		"random", p.Random,
		"discontinuity", p.Discontinuity,
		"pts", p.PTS,
		"dts", p.DTS,
	)
	if s.enc == nil {
		return nil
	}
	_, err := s.enc.Write(p.Bytes)
	return err
}

func main() {
	inPtr := flag.String("in", "", inUsage)
	outPtr := flag.String("out", "", outUsage)
	chunkPtr := flag.Int("chunk", defaultChunkSize, chunkUsage)
	logLevelPtr := flag.Int("LogLevel", int(logging.Info), logLevelUsage)
	flag.Parse()

	log := logging.New(int8(*logLevelPtr), os.Stderr, false)

	inFile, err := os.Open(*inPtr)
	if err != nil {
		panic(errBadInPath)
	}
	defer inFile.Close()

	sink := &printSink{log: log}

	if *outPtr != "" {
		outFile, err := os.Create(*outPtr)
		if err != nil {
			panic(errCantCreateOut)
		}
		defer outFile.Close()

		mts.Meta = meta.New()
		enc, err := mts.NewEncoder(outFile, log, mts.MediaType(mts.EncodeMPEG2))
		if err != nil {
			panic(fmt.Sprintf("could not create MTS encoder: %v", err))
		}
		defer enc.Close()
		sink.enc = enc
	}

	framer, err := mpeg2video.NewFramer(mpeg2video.WithSink(sink), mpeg2video.WithLogger(log), mpeg2video.WithSequenceInsertion(true))
	if err != nil {
		panic(fmt.Sprintf("could not create framer: %v", err))
	}

	buf := make([]byte, *chunkPtr)
	for {
		n, err := inFile.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := framer.Input(mpeg2video.ByteChunk{Bytes: chunk}); err != nil {
				panic(fmt.Sprintf("framer input failed: %v", err))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(errReadFail + ": " + err.Error())
		}
	}
}
