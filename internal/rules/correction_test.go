package rules

import (
	"strings"
	"testing"
)

// TestCorrectionRoundTrip tests encode/decode symmetry
func TestCorrectionRoundTrip(t *testing.T) {
	msg := CorrectionMessage{AgentID: 76561198000000001, GasRemoved: 0.25}

	frame := EncodeCorrection(9007, msg)
	if len(frame) != CorrectionFrameLen {
		t.Fatalf("Expected %d byte frame, got %d", CorrectionFrameLen, len(frame))
	}

	got, err := DecodeCorrection(9007, frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.AgentID != msg.AgentID {
		t.Errorf("Expected agent id %d, got %d", msg.AgentID, got.AgentID)
	}
	if got.GasRemoved != msg.GasRemoved {
		t.Errorf("Expected gasRemoved %.6f, got %.6f", msg.GasRemoved, got.GasRemoved)
	}
}

// TestCorrectionNegativeAgentID tests sign preservation through the codec
func TestCorrectionNegativeAgentID(t *testing.T) {
	msg := CorrectionMessage{AgentID: -42, GasRemoved: -0.1}

	got, err := DecodeCorrection(1, EncodeCorrection(1, msg))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.AgentID != -42 {
		t.Errorf("Expected agent id -42, got %d", got.AgentID)
	}
	if got.GasRemoved != float32(-0.1) {
		t.Errorf("Expected gasRemoved -0.1, got %.6f", got.GasRemoved)
	}
}

// TestCorrectionMalformedFrame tests length validation
func TestCorrectionMalformedFrame(t *testing.T) {
	if _, err := DecodeCorrection(9007, []byte{1, 2, 3}); err == nil {
		t.Error("Expected an error for a short frame")
	}
	if _, err := DecodeCorrection(9007, make([]byte, 15)); err == nil {
		t.Error("Expected an error for an oversized frame")
	}
}

// TestCorrectionChannelMismatch tests cross-channel rejection
func TestCorrectionChannelMismatch(t *testing.T) {
	frame := EncodeCorrection(9007, CorrectionMessage{AgentID: 1, GasRemoved: 0.5})

	_, err := DecodeCorrection(9008, frame)
	if err == nil {
		t.Fatal("Expected an error for a channel mismatch")
	}
	if !strings.Contains(err.Error(), "CORRECTION_CHANNEL_ID") {
		t.Errorf("Expected the error to point at the channel setting, got: %v", err)
	}
}
