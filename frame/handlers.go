// File: frame/handlers.go
// Author: momentics <momentics@gmail.com>
//
// Default per-opcode handlers pre-registered by NewCodec.

package frame

import (
	"unicode/utf8"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/pool"
)

type textHandler struct{}

func (textHandler) Encode(f api.Frame) ([]byte, error) {
	if !utf8.Valid(f.Data) {
		return nil, api.ErrInvalidTextData
	}
	return f.Data, nil
}

func (textHandler) Decode(payload []byte) (api.Frame, error) {
	if !utf8.Valid(payload) {
		return api.Frame{}, api.ErrInvalidTextData
	}
	return api.Frame{Type: api.FrameText, Data: payload}, nil
}

type binaryHandler struct{}

func (binaryHandler) Encode(f api.Frame) ([]byte, error) { return f.Data, nil }

func (binaryHandler) Decode(payload []byte) (api.Frame, error) {
	return api.Frame{Type: api.FrameBinary, Data: payload}, nil
}

// controlHandler backs both ping and pong; the opcode it was constructed
// with decides which api.FrameType a Decode call produces.
type controlHandler struct{ opcode Opcode }

func (controlHandler) Encode(f api.Frame) ([]byte, error) { return f.Data, nil }

func (h controlHandler) Decode(payload []byte) (api.Frame, error) {
	t := api.FramePing
	if h.opcode == OpcodePong {
		t = api.FramePong
	}
	return api.Frame{Type: t, Data: payload}, nil
}

// closeHandler is the one default handler that allocates on Encode instead
// of passing f.Data straight through, so it is the one that draws from bufs
// rather than the caller's own slice.
type closeHandler struct{ bufs pool.BytePool }

func (h closeHandler) Encode(f api.Frame) ([]byte, error) {
	payload := h.bufs.Get()
	payload = append(payload, byte(f.CloseCode>>8), byte(f.CloseCode))
	payload = append(payload, f.CloseText...)
	return payload, nil
}

func (closeHandler) Decode(payload []byte) (api.Frame, error) {
	if len(payload) == 0 {
		return api.Frame{Type: api.FrameClose}, nil
	}
	if len(payload) < 2 {
		return api.Frame{}, api.ErrInvalidFrame
	}
	code := int(payload[0])<<8 | int(payload[1])
	return api.Frame{
		Type:      api.FrameClose,
		CloseCode: code,
		CloseText: string(payload[2:]),
	}, nil
}
