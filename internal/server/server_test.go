package server

import (
	"bytes"
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorkv/reactorkv/pkg/protocol"
)

func startTestServer(t *testing.T) (addr string) {
	t.Helper()
	srv, err := New("127.0.0.1", 0)
	require.NoError(t, err)

	host, port, err := srv.Addr()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		srv.Close()
		<-done
	})

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func sendRequest(t *testing.T, conn net.Conn, argv ...string) protocol.Value {
	t.Helper()
	var req bytes.Buffer
	args := make([][]byte, len(argv))
	for i, a := range argv {
		args[i] = []byte(a)
	}
	protocol.EncodeRequest(&req, args)
	_, err := conn.Write(req.Bytes())
	require.NoError(t, err)

	var header [4]byte
	_, err = readFull(conn, header[:])
	require.NoError(t, err)
	bodyLen := binary.LittleEndian.Uint32(header[:])
	body := make([]byte, bodyLen)
	_, err = readFull(conn, body)
	require.NoError(t, err)

	v, _, err := protocol.DecodeValue(body)
	require.NoError(t, err)
	return v
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestServerEndToEndGetSetDel(t *testing.T) {
	addr := startTestServer(t)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, protocol.Nil(), sendRequest(t, conn, "set", "foo", "bar"))
	assert.Equal(t, protocol.StrString("bar"), sendRequest(t, conn, "get", "foo"))
	assert.Equal(t, protocol.Int(1), sendRequest(t, conn, "del", "foo"))
	assert.Equal(t, protocol.Nil(), sendRequest(t, conn, "get", "foo"))
}

func TestServerEndToEndZSet(t *testing.T) {
	addr := startTestServer(t)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, protocol.Int(1), sendRequest(t, conn, "zadd", "leaderboard", "10", "alice"))
	assert.Equal(t, protocol.Int(1), sendRequest(t, conn, "zadd", "leaderboard", "20", "bob"))
	assert.Equal(t, protocol.StrString("10"), sendRequest(t, conn, "zscore", "leaderboard", "alice"))

	reply := sendRequest(t, conn, "zquery", "leaderboard", "0", "", "0", "10")
	require.Equal(t, protocol.TagArr, reply.Tag)
	require.Len(t, reply.Arr, 4)
	assert.Equal(t, protocol.StrString("alice"), reply.Arr[0])
	assert.Equal(t, protocol.StrString("bob"), reply.Arr[2])
}

func TestServerEndToEndBadCommand(t *testing.T) {
	addr := startTestServer(t)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendRequest(t, conn, "nope")
	assert.Equal(t, protocol.TagErr, reply.Tag)
}

// TestServerEndToEndMalformedRequestClosesConnection sends a frame whose
// body is not a valid request (a declared argument count with no
// matching argument bytes). The server must treat this as protocol-fatal
// and close the connection without sending any reply, rather than
// answering with a command-level ERR.
func TestServerEndToEndMalformedRequestClosesConnection(t *testing.T) {
	addr := startTestServer(t)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, 1) // claims one argument, supplies none

	var frame bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	frame.Write(header[:])
	frame.Write(body)

	_, err = conn.Write(frame.Bytes())
	require.NoError(t, err)

	var buf [1]byte
	_, err = conn.Read(buf[:])
	assert.Error(t, err, "server should close the connection instead of replying")
}
