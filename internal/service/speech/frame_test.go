package speech

import (
	"bytes"
	"testing"
)

func TestFrameRoundTripWithGzip(t *testing.T) {
	in := &frame{
		kind:          frameAudioClient,
		flags:         flagNegativeSequence,
		serialization: serializationNone,
		compression:   compressionGzip,
		sequence:      -7,
		payload:       []byte("pcm-bytes"),
	}

	data, err := in.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if data[0] != 0x11 {
		t.Fatalf("unexpected version/header byte %#x", data[0])
	}
	if data[1] != byte(frameAudioClient)<<4|byte(flagNegativeSequence) {
		t.Fatalf("unexpected type/flags byte %#x", data[1])
	}

	out, err := unmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.sequence != -7 || !out.final() {
		t.Fatalf("expected final frame with sequence -7, got %+v", out)
	}
	if !bytes.Equal(out.payload, in.payload) {
		t.Fatalf("payload mismatch: %q", out.payload)
	}
}

func TestFrameEventFields(t *testing.T) {
	in := &frame{
		kind:          frameFullServer,
		flags:         flagEvent,
		serialization: serializationJSON,
		event:         eventSessionFinished,
		sessionID:     "sess-1",
		payload:       []byte(`{}`),
	}
	data, err := in.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out, err := unmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.hasEvent() || out.event != eventSessionFinished || out.sessionID != "sess-1" {
		t.Fatalf("event fields not decoded: %+v", out)
	}
	if out.final() {
		t.Fatalf("event frame without last flag should not be final")
	}
}

func TestFrameConnectionEventCarriesConnectID(t *testing.T) {
	in := &frame{
		kind:      frameFullServer,
		flags:     flagEvent,
		event:     eventConnectionStarted,
		connectID: "conn-9",
	}
	data, err := in.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := unmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.sessionID != "" || out.connectID != "conn-9" {
		t.Fatalf("unexpected ids: session=%q connect=%q", out.sessionID, out.connectID)
	}
}

func TestFrameErrorCode(t *testing.T) {
	in := &frame{kind: frameError, errorCode: 45000001, payload: []byte("bad request")}
	data, err := in.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := unmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.errorCode != 45000001 || string(out.payload) != "bad request" {
		t.Fatalf("unexpected error frame: %+v", out)
	}
}

func TestUnmarshalFrameRejectsTruncatedPayload(t *testing.T) {
	in := &frame{kind: frameFullServer, payload: []byte("0123456789")}
	data, err := in.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := unmarshalFrame(data[:len(data)-3]); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
	if _, err := unmarshalFrame([]byte{0x11}); err == nil {
		t.Fatalf("expected error for short frame")
	}
}
