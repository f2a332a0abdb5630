package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []Value{
		Nil(),
		Err("bad command"),
		StrString("hello"),
		Int(-42),
		Arr(StrString("a"), Int(1), StrString("b"), Int(2)),
	}
	for _, v := range values {
		var buf bytes.Buffer
		EncodeResponse(&buf, v)

		body, consumed, tooBig, ok := TryExtractFrame(buf.Bytes())
		require.False(t, tooBig)
		require.True(t, ok)
		assert.Equal(t, buf.Len(), consumed)

		got, used, err := DecodeValue(body)
		require.NoError(t, err)
		assert.Equal(t, len(body), used)
		assert.Equal(t, v, got)
	}
}

func TestTryExtractFramePartial(t *testing.T) {
	var buf bytes.Buffer
	EncodeResponse(&buf, StrString("hello world"))
	whole := buf.Bytes()

	_, _, tooBig, ok := TryExtractFrame(whole[:HeaderSize+2])
	assert.False(t, tooBig)
	assert.False(t, ok)

	body, consumed, tooBig, ok := TryExtractFrame(whole)
	require.False(t, tooBig)
	require.True(t, ok)
	assert.Equal(t, len(whole), consumed)
	v, _, err := DecodeValue(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(v.Str))
}

func TestTryExtractFrameTooBig(t *testing.T) {
	var header [4]byte
	var buf bytes.Buffer
	buf.Write(header[:])
	// Patch in a declared length larger than MaxMsg.
	b := buf.Bytes()
	b[0], b[1], b[2], b[3] = 0xff, 0xff, 0xff, 0x7f
	_, _, tooBig, ok := TryExtractFrame(b)
	assert.True(t, tooBig)
	assert.False(t, ok)
}

func TestEncodeResponseTruncatesOversizedBody(t *testing.T) {
	huge := make([]byte, MaxMsg+1)
	var buf bytes.Buffer
	EncodeResponse(&buf, Str(huge))

	body, _, tooBig, ok := TryExtractFrame(buf.Bytes())
	require.False(t, tooBig)
	require.True(t, ok)
	v, _, err := DecodeValue(body)
	require.NoError(t, err)
	assert.Equal(t, TagErr, v.Tag)
	assert.Equal(t, "response too big", string(v.Str))
}

func TestParseRequestRoundTrip(t *testing.T) {
	argv := [][]byte{[]byte("set"), []byte("foo"), []byte("bar")}
	var buf bytes.Buffer
	EncodeRequest(&buf, argv)

	body, consumed, tooBig, ok := TryExtractFrame(buf.Bytes())
	require.False(t, tooBig)
	require.True(t, ok)
	assert.Equal(t, buf.Len(), consumed)

	got, err := ParseRequest(body)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, want := range argv {
		assert.Equal(t, want, got[i])
	}
}

func TestParseRequestRejectsTruncated(t *testing.T) {
	_, err := ParseRequest([]byte{1, 0, 0, 0})
	assert.Error(t, err)
}

func TestParseRequestRejectsTooManyArgs(t *testing.T) {
	var body bytes.Buffer
	putU32(&body, MaxArgs+1)
	_, err := ParseRequest(body.Bytes())
	assert.Error(t, err)
}

func TestParseRequestRejectsTrailingBytes(t *testing.T) {
	var body bytes.Buffer
	putU32(&body, 0)
	body.WriteByte(0xff)
	_, err := ParseRequest(body.Bytes())
	assert.Error(t, err)
}
