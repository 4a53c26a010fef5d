package rules

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CorrectionMessage is the one-way authoritative→replica record rolling back
// a fuel prediction: the referenced agent's locally tracked reserve is
// decreased by GasRemoved.
type CorrectionMessage struct {
	AgentID    int64
	GasRemoved float32
}

// Wire shape: big-endian, fixed length.
//
//	[0:2]  uint16  channel id
//	[2:10] int64   agent id
//	[10:14] float32 gas removed (reserve ratio units)
const CorrectionFrameLen = 14

// EncodeCorrection serializes a correction for the given logical channel.
func EncodeCorrection(channel uint16, msg CorrectionMessage) []byte {
	buf := make([]byte, CorrectionFrameLen)
	binary.BigEndian.PutUint16(buf[0:2], channel)
	binary.BigEndian.PutUint64(buf[2:10], uint64(msg.AgentID))
	binary.BigEndian.PutUint32(buf[10:14], math.Float32bits(msg.GasRemoved))
	return buf
}

// DecodeCorrection parses a received frame, validating length and channel.
// A channel mismatch usually means unrelated traffic is sharing the id;
// the error says so because the fix is a configuration change, not code.
func DecodeCorrection(channel uint16, frame []byte) (CorrectionMessage, error) {
	if len(frame) != CorrectionFrameLen {
		return CorrectionMessage{}, fmt.Errorf("malformed correction frame: %d bytes, want %d", len(frame), CorrectionFrameLen)
	}
	got := binary.BigEndian.Uint16(frame[0:2])
	if got != channel {
		return CorrectionMessage{}, fmt.Errorf("correction frame for channel %d, expected %d: another mod may be using this channel id, consider changing CORRECTION_CHANNEL_ID", got, channel)
	}
	return CorrectionMessage{
		AgentID:    int64(binary.BigEndian.Uint64(frame[2:10])),
		GasRemoved: math.Float32frombits(binary.BigEndian.Uint32(frame[10:14])),
	}, nil
}
