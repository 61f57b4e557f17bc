package protocol

import (
	"fmt"
	"io"
)

// Sideband channel numbers, per side-band-64k multiplexing. The teacher
// reads these (fetchPackfileStreamCode in model.go) but only ever as a
// client; SidebandWriter is the write-side half server components need.
const (
	SidebandData     = 1
	SidebandProgress = 2
	SidebandFatal    = 3
)

// sidebandMaxPayload is the largest chunk of channel data a single
// pkt-line can carry once the channel-number byte is accounted for:
// MaxPktLineDataSize (65516) minus 1 leaves 65515, but side-band-64k
// additionally reserves a few bytes of framing slack per the wire
// convention of capping payloads at 65519 total packet bytes.
const sidebandMaxPayload = 65519 - PktLineLengthSize - 1

// SidebandWriter multiplexes pack data, progress text, and a single
// terminal fatal message onto one underlying stream, framing each chunk
// as a pkt-line whose first payload byte is the channel number.
type SidebandWriter struct {
	out io.Writer
}

// NewSidebandWriter wraps out for sideband-multiplexed writes.
func NewSidebandWriter(out io.Writer) *SidebandWriter {
	return &SidebandWriter{out: out}
}

// WriteData sends p on channel 1 (pack data), splitting it into multiple
// pkt-lines if it exceeds the per-frame payload limit.
func (s *SidebandWriter) WriteData(p []byte) error {
	return s.writeChannel(SidebandData, p)
}

// WriteProgress sends msg on channel 2 (progress text). Callers are
// expected to already be rate-limiting these per the bounded-interval
// policy; this method itself performs no throttling.
func (s *SidebandWriter) WriteProgress(msg string) error {
	return s.writeChannel(SidebandProgress, []byte(msg))
}

// WriteFatal sends msg on channel 3 (fatal error) and is always the last
// frame a SidebandWriter should send: the remote treats channel 3 as
// aborting the stream on receipt.
func (s *SidebandWriter) WriteFatal(msg string) error {
	return s.writeChannel(SidebandFatal, []byte(msg))
}

func (s *SidebandWriter) writeChannel(channel byte, data []byte) error {
	if len(data) == 0 {
		return s.writeFrame(channel, nil)
	}
	for offset := 0; offset < len(data); offset += sidebandMaxPayload {
		end := offset + sidebandMaxPayload
		if end > len(data) {
			end = len(data)
		}
		if err := s.writeFrame(channel, data[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SidebandWriter) writeFrame(channel byte, chunk []byte) error {
	payload := make([]byte, 0, len(chunk)+1)
	payload = append(payload, channel)
	payload = append(payload, chunk...)

	pkt, err := PackLine(payload).Marshal()
	if err != nil {
		return fmt.Errorf("protocol: marshal sideband frame: %w", err)
	}
	_, err = s.out.Write(pkt)
	return err
}
