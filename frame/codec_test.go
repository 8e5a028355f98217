// File: frame/codec_test.go
// Author: momentics <momentics@gmail.com>

package frame

import (
	"testing"

	"github.com/momentics/wsconnect/api"
)

func TestValidateCloseCode(t *testing.T) {
	cases := []struct {
		code    int
		wantErr error
	}{
		{999, api.ErrInvalidCloseCode},
		{1000, nil},
		{1001, nil},
		{1003, nil},
		{1004, api.ErrReservedCloseCode},
		{1005, api.ErrReservedCloseCode},
		{1006, api.ErrReservedCloseCode},
		{1007, nil},
		{1011, nil},
		{1012, api.ErrInvalidCloseCode},
		{1015, api.ErrReservedCloseCode},
		{3000, nil},
		{4999, nil},
		{5000, api.ErrInvalidCloseCode},
	}
	for _, c := range cases {
		if err := ValidateCloseCode(c.code); err != c.wantErr {
			t.Errorf("ValidateCloseCode(%d) = %v, want %v", c.code, err, c.wantErr)
		}
	}
}

func TestValidateControlFrameSize(t *testing.T) {
	if err := ValidateControlFrameSize(make([]byte, 125)); err != nil {
		t.Errorf("125 bytes should be valid, got %v", err)
	}
	if err := ValidateControlFrameSize(make([]byte, 126)); err != api.ErrControlFrameTooLarge {
		t.Errorf("126 bytes should be control_frame_too_large, got %v", err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec()
	frames := []api.Frame{
		{Type: api.FrameText, Data: []byte(`{"hello":"world"}`)},
		{Type: api.FrameBinary, Data: []byte{1, 2, 3, 4}},
		{Type: api.FramePing, Data: []byte("ping")},
		{Type: api.FramePong, Data: []byte("pong")},
		{Type: api.FrameClose, CloseCode: 1000, CloseText: "bye"},
	}
	for _, f := range frames {
		raw, err := c.Encode(f)
		if err != nil {
			t.Fatalf("Encode(%v) error: %v", f.Type, err)
		}
		opcode := OpcodeFor(f.Type)
		got, err := c.Decode(opcode, raw)
		if err != nil {
			t.Fatalf("Decode(%v) error: %v", f.Type, err)
		}
		if got.Type != f.Type {
			t.Errorf("round trip type mismatch: got %v want %v", got.Type, f.Type)
		}
		if f.Type == api.FrameClose {
			if got.CloseCode != f.CloseCode || got.CloseText != f.CloseText {
				t.Errorf("close round trip mismatch: got %+v want %+v", got, f)
			}
		} else if string(got.Data) != string(f.Data) {
			t.Errorf("payload round trip mismatch: got %q want %q", got.Data, f.Data)
		}
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	c := NewCodec()
	if _, err := c.Decode(0x3, []byte("x")); err != api.ErrInvalidFrame {
		t.Errorf("unknown opcode should be invalid_frame, got %v", err)
	}
}

func TestInvalidTextData(t *testing.T) {
	c := NewCodec()
	invalidUTF8 := []byte{0xff, 0xfe, 0xfd}
	if _, err := c.Encode(api.Frame{Type: api.FrameText, Data: invalidUTF8}); err != api.ErrInvalidTextData {
		t.Errorf("invalid utf-8 should fail with invalid_text_data, got %v", err)
	}
}

func TestRegisterUnregisterHandler(t *testing.T) {
	c := NewCodec()
	c.UnregisterHandler(OpcodeText)
	if _, err := c.Decode(OpcodeText, []byte("hi")); err != api.ErrInvalidFrame {
		t.Errorf("unregistered opcode should be invalid_frame, got %v", err)
	}
	c.RegisterHandler(OpcodeText, textHandler{})
	if _, err := c.Decode(OpcodeText, []byte("hi")); err != nil {
		t.Errorf("re-registered opcode should decode cleanly, got %v", err)
	}
}
