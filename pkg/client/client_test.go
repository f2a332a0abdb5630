package client

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorkv/reactorkv/internal/server"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New("127.0.0.1", 0)
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

func TestClientGetSetDel(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)
	defer c.Close()

	_, ok, err := c.Get("foo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("foo", "bar"))

	val, ok, err := c.Get("foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", val)

	removed, err := c.Del("foo")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Del("foo")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClientKeys(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)
	defer c.Close()

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestClientZSet(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)
	defer c.Close()

	inserted, err := c.ZAdd("board", 10, "alice")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = c.ZAdd("board", 20, "bob")
	require.NoError(t, err)
	assert.True(t, inserted)

	score, ok, err := c.ZScore("board", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10.0, score)

	members, err := c.ZQuery("board", 0, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Name)
	assert.Equal(t, "bob", members[1].Name)

	removed, err := c.ZRem("board", "alice")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestClientGetEmptyKeyNotFound(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)
	defer c.Close()

	_, ok, err := c.Get("")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientConnectionPoolReuse(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)
	defer c.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set("k", "v"))
	}

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, c.pool.created)
}
