// Package fseq reads header metadata out of rendered show files
// (.fseq, the FPP/xLights binary sequence format).
package fseq

import (
	"encoding/binary"
	"fmt"

	"github.com/lightgrid/lightgrid-services-uploads/models"
)

// headerSize is the fixed portion of the v2 header we need. The full
// header is longer (variable headers follow) but everything we extract
// lives in the first 20 bytes.
const headerSize = 20

// v2 header layout, little-endian:
//
//	0..3   magic "PSEQ" ("FSEQ" in some v1 writers)
//	4..5   offset to channel data
//	6      minor version
//	7      major version
//	8..9   standard header length
//	10..13 channel count per frame
//	14..17 number of frames
//	18     step time in milliseconds
//	19     flags
const (
	offChannelCount = 10
	offFrameCount   = 14
	offStepTime     = 18
)

// ParseHeader extracts sequence metadata from the leading bytes of an
// fseq file. The caller provides at least the first KB of content.
func ParseHeader(header []byte) (*models.SequenceMetadata, error) {
	if len(header) < headerSize {
		return nil, fmt.Errorf("fseq header too short: %d bytes", len(header))
	}

	magic := string(header[0:4])
	if magic != "PSEQ" && magic != "FSEQ" {
		return nil, fmt.Errorf("fseq: unexpected magic %q", magic)
	}

	channels := binary.LittleEndian.Uint32(header[offChannelCount:])
	frames := binary.LittleEndian.Uint32(header[offFrameCount:])
	stepTime := header[offStepTime]

	if stepTime == 0 {
		return nil, fmt.Errorf("fseq: zero step time")
	}
	if frames == 0 {
		return nil, fmt.Errorf("fseq: zero frame count")
	}

	return &models.SequenceMetadata{
		ChannelCount:   channels,
		FrameCount:     frames,
		StepTimeMillis: stepTime,
		DurationMillis: uint64(frames) * uint64(stepTime),
	}, nil
}
