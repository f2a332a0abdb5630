// Package protocol implements the wire codec: a tag-length-value (TLV)
// value encoding and the length-prefixed framing around it. Every frame on
// the wire, request or response, is a u32 little-endian body length
// followed by that many bytes of body; nothing else ever touches the
// socket directly.
package protocol

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Tag identifies the shape of a Value on the wire.
type Tag byte

const (
	TagNil Tag = 0
	TagErr Tag = 1
	TagStr Tag = 2
	TagInt Tag = 3
	TagDbl Tag = 4 // reserved; never emitted by this package
	TagArr Tag = 5
)

const (
	// HeaderSize is the width of the u32 length prefix on every frame.
	HeaderSize = 4
	// MaxMsg is the largest body, request or response, this codec will
	// produce or accept without treating it as oversized.
	MaxMsg = 32 * 1024 * 1024
	// MaxArgs bounds how many strings a single request's argv may carry.
	MaxArgs = 200000
)

// Value is a decoded or to-be-encoded TLV value.
type Value struct {
	Tag Tag
	Str []byte  // ERR message or STR payload
	Int int64   // INT payload
	Arr []Value // ARR payload
}

// Nil returns the NIL value.
func Nil() Value { return Value{Tag: TagNil} }

// Err returns an ERR value carrying msg.
func Err(msg string) Value { return Value{Tag: TagErr, Str: []byte(msg)} }

// Str returns a STR value carrying b.
func Str(b []byte) Value { return Value{Tag: TagStr, Str: b} }

// StrString returns a STR value carrying s.
func StrString(s string) Value { return Value{Tag: TagStr, Str: []byte(s)} }

// Int returns an INT value carrying n.
func Int(n int64) Value { return Value{Tag: TagInt, Int: n} }

// Arr returns an ARR value carrying items.
func Arr(items ...Value) Value { return Value{Tag: TagArr, Arr: items} }

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putI64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func encodeValue(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.Tag))
	switch v.Tag {
	case TagNil:
		// no payload
	case TagErr, TagStr:
		putU32(buf, uint32(len(v.Str)))
		buf.Write(v.Str)
	case TagInt:
		putI64(buf, v.Int)
	case TagArr:
		putU32(buf, uint32(len(v.Arr)))
		for _, item := range v.Arr {
			encodeValue(buf, item)
		}
	default:
		// TagDbl and anything unrecognized never reach the wire; a
		// caller constructing one is a programming error.
		panic("protocol: unsupported tag in Value")
	}
}

// EncodeResponse appends one framed response (length prefix + TLV body) for
// v onto buf. A body that would exceed MaxMsg is replaced, in place, by an
// ERR value before framing, so the client always gets a well-formed reply.
func EncodeResponse(buf *bytes.Buffer, v Value) {
	var body bytes.Buffer
	encodeValue(&body, v)
	if body.Len() > MaxMsg {
		body.Reset()
		encodeValue(&body, Err("response too big"))
	}
	putU32(buf, uint32(body.Len()))
	buf.Write(body.Bytes())
}

// TryExtractFrame looks for one complete frame at the start of buf. If the
// frame's declared body length exceeds MaxMsg, tooBig is true and the
// caller should treat the connection as unrecoverable. Otherwise, if a full
// frame is not yet buffered, ok is false and the caller should wait for
// more bytes. On success it returns the frame's body (a slice into buf,
// not a copy) and how many bytes of buf the frame occupied.
func TryExtractFrame(buf []byte) (body []byte, consumed int, tooBig bool, ok bool) {
	if len(buf) < HeaderSize {
		return nil, 0, false, false
	}
	bodyLen := binary.LittleEndian.Uint32(buf)
	if bodyLen > MaxMsg {
		return nil, 0, true, false
	}
	total := HeaderSize + int(bodyLen)
	if len(buf) < total {
		return nil, 0, false, false
	}
	return buf[HeaderSize:total], total, false, true
}

// ParseRequest decodes a request body into its argument vector, following
// the grammar `u32 nstr | (u32 len|bytes){nstr}`.
func ParseRequest(body []byte) ([][]byte, error) {
	if len(body) < 4 {
		return nil, errors.New("protocol: request missing argument count")
	}
	nstr := binary.LittleEndian.Uint32(body)
	body = body[4:]
	if nstr > MaxArgs {
		return nil, errors.Errorf("protocol: request has %d arguments, max %d", nstr, MaxArgs)
	}
	argv := make([][]byte, 0, nstr)
	for i := uint32(0); i < nstr; i++ {
		if len(body) < 4 {
			return nil, errors.New("protocol: truncated argument length")
		}
		l := binary.LittleEndian.Uint32(body)
		body = body[4:]
		if uint64(l) > uint64(len(body)) {
			return nil, errors.New("protocol: truncated argument body")
		}
		argv = append(argv, body[:l])
		body = body[l:]
	}
	if len(body) != 0 {
		return nil, errors.New("protocol: trailing bytes after argument vector")
	}
	return argv, nil
}

// EncodeRequest frames a request built from argv, matching the grammar
// ParseRequest decodes. It is used by pkg/client, not by the server.
func EncodeRequest(buf *bytes.Buffer, argv [][]byte) {
	var body bytes.Buffer
	putU32(&body, uint32(len(argv)))
	for _, arg := range argv {
		putU32(&body, uint32(len(arg)))
		body.Write(arg)
	}
	putU32(buf, uint32(body.Len()))
	buf.Write(body.Bytes())
}

// DecodeValue decodes exactly one TLV value from the front of body and
// returns the number of bytes it consumed.
func DecodeValue(body []byte) (Value, int, error) {
	if len(body) < 1 {
		return Value{}, 0, errors.New("protocol: empty value")
	}
	tag := Tag(body[0])
	rest := body[1:]
	switch tag {
	case TagNil:
		return Value{Tag: TagNil}, 1, nil
	case TagErr, TagStr:
		if len(rest) < 4 {
			return Value{}, 0, errors.New("protocol: truncated string length")
		}
		l := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
		if uint64(l) > uint64(len(rest)) {
			return Value{}, 0, errors.New("protocol: truncated string body")
		}
		return Value{Tag: tag, Str: rest[:l]}, 1 + 4 + int(l), nil
	case TagInt:
		if len(rest) < 8 {
			return Value{}, 0, errors.New("protocol: truncated int")
		}
		n := int64(binary.LittleEndian.Uint64(rest))
		return Value{Tag: TagInt, Int: n}, 1 + 8, nil
	case TagArr:
		if len(rest) < 4 {
			return Value{}, 0, errors.New("protocol: truncated array length")
		}
		n := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
		consumed := 1 + 4
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			item, used, err := DecodeValue(rest)
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, item)
			rest = rest[used:]
			consumed += used
		}
		return Value{Tag: TagArr, Arr: items}, consumed, nil
	default:
		return Value{}, 0, errors.Errorf("protocol: unknown tag %d", tag)
	}
}
