// Package frame implements a pluggable, per-opcode WebSocket frame codec.
// Adapted from protocol/frame_codec.go's validate-then-dispatch shape,
// generalized from a fixed switch over opcodes to a runtime-extensible
// handler registry so a consumer can, for example, register a
// permessage-deflate handler without touching this package.
// Author: momentics <momentics@gmail.com>
package frame

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/pool"
)

// DefaultMaxFramePayload bounds a single frame's payload, carried over from
// protocol.MaxFramePayload to guard against resource exhaustion from a
// misbehaving peer.
const DefaultMaxFramePayload = 1 << 20 // 1 MiB

// Opcode is the RFC 6455 wire opcode; it is defined in terms of
// gorilla/websocket's own message-type constants so the codec and the
// transport layer never disagree about the mapping.
type Opcode = int

const (
	OpcodeText   Opcode = websocket.TextMessage
	OpcodeBinary Opcode = websocket.BinaryMessage
	OpcodeClose  Opcode = websocket.CloseMessage
	OpcodePing   Opcode = websocket.PingMessage
	OpcodePong   Opcode = websocket.PongMessage
)

// Handler encodes/decodes the payload for one opcode. Registered handlers
// are never asked to validate size/close-code rules; that is the codec's
// job, applied uniformly before dispatch.
type Handler interface {
	Encode(f api.Frame) ([]byte, error)
	Decode(payload []byte) (api.Frame, error)
}

// Codec is the concurrent, read-mostly frame handler registry. Readers
// (Encode/Decode) never block on writers (RegisterHandler/UnregisterHandler)
// because the registry is a sync.Map: atomic, read-mostly semantics where
// readers never block on writers.
type Codec struct {
	handlers   sync.Map // Opcode -> Handler
	maxPayload int

	// closeBufs pools the small header+reason buffers closeHandler.Encode
	// builds on every close frame, the one handler that allocates instead of
	// passing f.Data straight through.
	closeBufs pool.BytePool
}

// NewCodec returns a Codec with the five RFC 6455 opcodes pre-registered.
func NewCodec() *Codec {
	c := &Codec{
		maxPayload: DefaultMaxFramePayload,
		closeBufs:  pool.NewSimpleBytePool(8, 128),
	}
	c.handlers.Store(OpcodeText, textHandler{})
	c.handlers.Store(OpcodeBinary, binaryHandler{})
	c.handlers.Store(OpcodePing, controlHandler{opcode: OpcodePing})
	c.handlers.Store(OpcodePong, controlHandler{opcode: OpcodePong})
	c.handlers.Store(OpcodeClose, closeHandler{bufs: c.closeBufs})
	return c
}

// ReleasePayload returns an encoded payload to the codec's pool once the
// caller is done writing it to the wire. Only the close opcode's buffer is
// pooled; every other call is a no-op.
func (c *Codec) ReleasePayload(opcode Opcode, payload []byte) {
	if opcode == OpcodeClose {
		c.closeBufs.Put(payload)
	}
}

// RegisterHandler installs (or replaces) the handler for an opcode.
func (c *Codec) RegisterHandler(opcode Opcode, h Handler) {
	c.handlers.Store(opcode, h)
}

// UnregisterHandler removes the handler for an opcode; Encode/Decode will
// subsequently fail with api.ErrInvalidFrame for that opcode.
func (c *Codec) UnregisterHandler(opcode Opcode) {
	c.handlers.Delete(opcode)
}

// OpcodeFor maps an internal FrameType onto its RFC 6455 wire opcode; -1 for
// an unrecognized type. Exported so callers driving the wire write
// themselves (transportio.Transport.Send) don't duplicate this mapping.
func OpcodeFor(t api.FrameType) Opcode {
	switch t {
	case api.FrameText:
		return OpcodeText
	case api.FrameBinary:
		return OpcodeBinary
	case api.FramePing:
		return OpcodePing
	case api.FramePong:
		return OpcodePong
	case api.FrameClose:
		return OpcodeClose
	default:
		return -1
	}
}

// Encode translates an internal frame into transport-native bytes,
// dispatching by opcode to the handler registered for it.
func (c *Codec) Encode(f api.Frame) ([]byte, error) {
	if err := c.Validate(f); err != nil {
		return nil, err
	}
	opcode := OpcodeFor(f.Type)
	v, ok := c.handlers.Load(opcode)
	if !ok {
		return nil, api.ErrInvalidFrame
	}
	return v.(Handler).Encode(f)
}

// Decode translates a transport-native frame into the internal
// representation. Unknown opcodes map to api.ErrInvalidFrame.
func (c *Codec) Decode(opcode Opcode, payload []byte) (api.Frame, error) {
	v, ok := c.handlers.Load(opcode)
	if !ok {
		return api.Frame{}, api.ErrInvalidFrame
	}
	f, err := v.(Handler).Decode(payload)
	if err != nil {
		return api.Frame{}, err
	}
	if err := c.Validate(f); err != nil {
		return api.Frame{}, err
	}
	return f, nil
}

// Validate applies frame-size and close-code rules uniformly, independent
// of which handler produced or will consume the frame.
func (c *Codec) Validate(f api.Frame) error {
	switch f.Type {
	case api.FrameText:
		// UTF-8 validity is enforced in textHandler.Decode/Encode; here we
		// only enforce the size ceiling shared by every frame type.
	case api.FramePing, api.FramePong:
		if err := ValidateControlFrameSize(f.Data); err != nil {
			return err
		}
	case api.FrameClose:
		if err := ValidateCloseCode(f.CloseCode); err != nil {
			return err
		}
		if err := ValidateControlFrameSize(append([]byte{0, 0}, f.CloseText...)); err != nil {
			return err
		}
	}
	if len(f.Data) > c.maxPayload {
		return api.ErrInvalidFrame
	}
	return nil
}

// ValidateControlFrameSize enforces the RFC 6455 125-byte ceiling on
// control frame payloads (ping/pong/close).
func ValidateControlFrameSize(data []byte) error {
	if len(data) > 125 {
		return api.ErrControlFrameTooLarge
	}
	return nil
}

// ValidateCloseCode implements the accept/reserved/invalid partition over
// RFC 6455 close codes.
func ValidateCloseCode(n int) error {
	switch {
	case n == 1004 || n == 1005 || n == 1006 || n == 1015:
		return api.ErrReservedCloseCode
	case n == 1000, n == 1001, n == 1002, n == 1003:
		return nil
	case n >= 1007 && n <= 1011:
		return nil
	case n >= 3000 && n <= 4999:
		return nil
	default:
		return api.ErrInvalidCloseCode
	}
}
