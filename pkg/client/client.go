// Package client implements a connection-pooled TCP client for reactorkv's
// TLV wire protocol.
//
// Example usage:
//
//	c := client.New("127.0.0.1:1234")
//	defer c.Close()
//
//	if err := c.Set("foo", "bar"); err != nil {
//		log.Fatal(err)
//	}
//	val, ok, err := c.Get("foo")
//
// Every call acquires a pooled connection, sends one framed request, reads
// one framed response, and returns the connection to the pool. A call that
// fails with a network error closes that connection and is retried on
// another one (an idle pooled connection if there is one, otherwise a newly
// dialed one) up to config.ClientConfig.RetryAttempts times.
package client

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/reactorkv/reactorkv/pkg/config"
	"github.com/reactorkv/reactorkv/pkg/protocol"
)

// Client is a connection-pooled client for a single reactorkv server.
type Client struct {
	config *config.ClientConfig
	pool   *connectionPool
}

// ZMember is one (name, score) pair returned by ZQuery.
type ZMember struct {
	Name  string
	Score float64
}

// New creates a Client for the given "host:port" address. Timeout and retry
// settings come from config.LoadClientConfig (REACTORKV_* environment
// variables, else defaults); address overrides REACTORKV_ADDRESS.
//
// Example:
//
//	c := client.New("127.0.0.1:1234")
//	defer c.Close()
func New(address string) *Client {
	cfg := config.LoadClientConfig()
	cfg.Address = address
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Client using the provided configuration.
//
// Panics if the configuration fails validation.
func NewWithConfig(cfg *config.ClientConfig) *Client {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid client config: %v", err))
	}

	return &Client{
		config: cfg,
		pool: &connectionPool{
			address:     cfg.Address,
			connections: make(chan net.Conn, defaultPoolSize),
			maxConns:    defaultPoolSize,
			connTimeout: time.Duration(cfg.ConnTimeout) * time.Second,
		},
	}
}

// defaultPoolSize bounds how many idle connections a pool will hold onto
// for reuse; it is not a cap on concurrent requests.
const defaultPoolSize = 16

// Close releases every pooled connection. In-flight requests are not
// interrupted.
func (c *Client) Close() error {
	return c.pool.Close()
}

// Get fetches the string value stored at key. The second return value
// reports whether the key existed.
func (c *Client) Get(key string) (string, bool, error) {
	reply, err := c.execute([]byte("get"), []byte(key))
	if err != nil {
		return "", false, err
	}
	if reply.Tag == protocol.TagNil {
		return "", false, nil
	}
	if reply.Tag != protocol.TagStr {
		return "", false, errors.Errorf("client: unexpected reply tag %d for get", reply.Tag)
	}
	return string(reply.Str), true, nil
}

// Set stores value at key, overwriting any existing value.
func (c *Client) Set(key, value string) error {
	reply, err := c.execute([]byte("set"), []byte(key), []byte(value))
	if err != nil {
		return err
	}
	return replyToErr(reply)
}

// Del deletes key. It reports whether the key existed.
func (c *Client) Del(key string) (bool, error) {
	reply, err := c.execute([]byte("del"), []byte(key))
	if err != nil {
		return false, err
	}
	if reply.Tag != protocol.TagInt {
		return false, replyToErr(reply)
	}
	return reply.Int == 1, nil
}

// Keys returns every key currently in the store.
func (c *Client) Keys() ([]string, error) {
	reply, err := c.execute([]byte("keys"))
	if err != nil {
		return nil, err
	}
	if reply.Tag != protocol.TagArr {
		return nil, replyToErr(reply)
	}
	keys := make([]string, len(reply.Arr))
	for i, v := range reply.Arr {
		keys[i] = string(v.Str)
	}
	return keys, nil
}

// ZAdd inserts or updates member's score in the sorted set at key. It
// reports whether member was newly inserted.
func (c *Client) ZAdd(key string, score float64, member string) (bool, error) {
	reply, err := c.execute([]byte("zadd"), []byte(key), []byte(formatScore(score)), []byte(member))
	if err != nil {
		return false, err
	}
	if reply.Tag != protocol.TagInt {
		return false, replyToErr(reply)
	}
	return reply.Int == 1, nil
}

// ZRem removes member from the sorted set at key. It reports whether
// member was present.
func (c *Client) ZRem(key, member string) (bool, error) {
	reply, err := c.execute([]byte("zrem"), []byte(key), []byte(member))
	if err != nil {
		return false, err
	}
	if reply.Tag != protocol.TagInt {
		return false, replyToErr(reply)
	}
	return reply.Int == 1, nil
}

// ZScore returns member's score in the sorted set at key. The second
// return value reports whether member is present.
func (c *Client) ZScore(key, member string) (float64, bool, error) {
	reply, err := c.execute([]byte("zscore"), []byte(key), []byte(member))
	if err != nil {
		return 0, false, err
	}
	if reply.Tag == protocol.TagNil {
		return 0, false, nil
	}
	if reply.Tag != protocol.TagStr {
		return 0, false, replyToErr(reply)
	}
	score, err := strconv.ParseFloat(string(reply.Str), 64)
	if err != nil {
		return 0, false, errors.Wrap(err, "client: parse zscore reply")
	}
	return score, true, nil
}

// ZQuery returns up to limit members of the sorted set at key starting
// from the first member at or after (score, name), skipping offset
// matching members first.
func (c *Client) ZQuery(key string, score float64, name string, offset, limit int64) ([]ZMember, error) {
	reply, err := c.execute(
		[]byte("zquery"), []byte(key), []byte(formatScore(score)), []byte(name),
		[]byte(strconv.FormatInt(offset, 10)), []byte(strconv.FormatInt(limit, 10)),
	)
	if err != nil {
		return nil, err
	}
	if reply.Tag != protocol.TagArr {
		return nil, replyToErr(reply)
	}
	members := make([]ZMember, 0, len(reply.Arr)/2)
	for i := 0; i+1 < len(reply.Arr); i += 2 {
		sc, err := strconv.ParseFloat(string(reply.Arr[i+1].Str), 64)
		if err != nil {
			return nil, errors.Wrap(err, "client: parse zquery reply")
		}
		members = append(members, ZMember{Name: string(reply.Arr[i].Str), Score: sc})
	}
	return members, nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', -1, 64)
}

func replyToErr(reply protocol.Value) error {
	if reply.Tag == protocol.TagErr {
		return errors.Errorf("reactorkv: %s", reply.Str)
	}
	return nil
}

// execute sends one request and returns its reply, retrying on another
// connection from the pool (or a newly dialed one) on network failure up
// to config.RetryAttempts times.
func (c *Client) execute(argv ...[]byte) (protocol.Value, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		reply, err := c.executeOnce(argv)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return protocol.Value{}, errors.Wrap(lastErr, "client: exhausted retries")
}

func (c *Client) executeOnce(argv [][]byte) (protocol.Value, error) {
	conn, err := c.pool.Get()
	if err != nil {
		return protocol.Value{}, err
	}

	reply, err := c.roundTrip(conn, argv)
	if err != nil {
		conn.Close()
		return protocol.Value{}, err
	}

	c.pool.Put(conn)
	return reply, nil
}

func (c *Client) roundTrip(conn net.Conn, argv [][]byte) (protocol.Value, error) {
	readTimeout := time.Duration(c.config.ReadTimeout) * time.Second
	writeTimeout := time.Duration(c.config.WriteTimeout) * time.Second

	var req bytes.Buffer
	protocol.EncodeRequest(&req, argv)

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return protocol.Value{}, errors.Wrap(err, "client: set write deadline")
	}
	if _, err := conn.Write(req.Bytes()); err != nil {
		return protocol.Value{}, errors.Wrap(err, "client: write request")
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return protocol.Value{}, errors.Wrap(err, "client: set read deadline")
	}
	var header [protocol.HeaderSize]byte
	if _, err := readFull(conn, header[:]); err != nil {
		return protocol.Value{}, errors.Wrap(err, "client: read response header")
	}
	bodyLen := binary.LittleEndian.Uint32(header[:])
	if bodyLen > protocol.MaxMsg {
		return protocol.Value{}, errors.Errorf("client: response too large: %d bytes", bodyLen)
	}
	body := make([]byte, bodyLen)
	if _, err := readFull(conn, body); err != nil {
		return protocol.Value{}, errors.Wrap(err, "client: read response body")
	}

	value, _, err := protocol.DecodeValue(body)
	if err != nil {
		return protocol.Value{}, errors.Wrap(err, "client: decode response")
	}
	return value, nil
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

// connectionPool maintains a bounded set of idle TCP connections to one
// server address, dialing fresh ones on demand when the pool is empty.
type connectionPool struct {
	connections chan net.Conn
	address     string
	connTimeout time.Duration
	mu          sync.Mutex
	maxConns    int
	created     int
	closed      bool
}

// Get returns an idle pooled connection, or dials a new one if none is
// idle. It does not limit how many connections get dialed: created is
// counted but never compared against maxConns.
func (p *connectionPool) Get() (net.Conn, error) {
	select {
	case conn := <-p.connections:
		return conn, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("client: connection pool closed")
	}
	p.created++
	p.mu.Unlock()

	conn, err := net.DialTimeout("tcp", p.address, p.connTimeout)
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return nil, errors.Wrapf(err, "client: dial %s", p.address)
	}
	return conn, nil
}

// Put returns a healthy connection to the pool for reuse. If the pool is
// full or closed, the connection is closed instead.
func (p *connectionPool) Put(conn net.Conn) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		conn.Close()
		return
	}

	select {
	case p.connections <- conn:
	default:
		conn.Close()
	}
}

// Close closes every idle pooled connection and marks the pool closed.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case conn := <-p.connections:
			conn.Close()
		default:
			return nil
		}
	}
}
