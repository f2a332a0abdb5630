// Package server implements the event-driven TCP server: a single-threaded,
// non-blocking, readiness-multiplexed loop that accepts connections, reads
// and parses requests, dispatches them against a store.Store, and writes
// replies, all on one OS thread with no locks.
//
// Architecture:
//   - Non-blocking listener and client sockets (golang.org/x/sys/unix)
//   - One poll(2) call per iteration covers the listener and every
//     connection's current read/write interest
//   - Each connection carries its own incoming/outgoing byte buffers and
//     want_read/want_write/want_close flags (see Conn, in conn.go)
//   - Command execution never blocks and never yields mid-command, so the
//     whole keyspace is implicitly linearizable
//
// Example usage:
//
//	srv, err := server.New("0.0.0.0", 1234)
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Fatal(srv.Serve())
package server

import (
	"bytes"
	"log"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactorkv/reactorkv/pkg/dispatch"
	"github.com/reactorkv/reactorkv/pkg/protocol"
	"github.com/reactorkv/reactorkv/pkg/store"
)

// readChunk is how many bytes a single non-blocking read attempts to pull
// off the wire per readiness notification.
const readChunk = 64 * 1024

// Server owns the listening socket, the set of live connections, and the
// keyspace they all dispatch against. conns is owned exclusively by the
// goroutine running Serve; Close never touches it, so the only field
// shared across goroutines is closed, and that is an atomic.Bool.
type Server struct {
	listenFD int
	store    *store.Store
	conns    map[int]*Conn
	closed   atomic.Bool
	maxConns int // 0 means unbounded
}

// SetMaxConns caps how many connections acceptAll will admit at once; once
// reached, new connection attempts queue in the kernel's accept backlog
// until a connection closes. A non-positive limit means unbounded.
func (s *Server) SetMaxConns(n int) {
	s.maxConns = n
}

// New binds and listens on address:port and returns a Server ready for
// Serve. The listening socket is non-blocking, matching every connection
// it will go on to accept.
func New(address string, port int) (*Server, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "server: socket")
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: setsockopt SO_REUSEADDR")
	}

	sa, err := sockaddrFor(address, port)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "server: bind %s:%d", address, port)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: listen")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: set listener non-blocking")
	}

	log.Printf("reactorkv listening on %s:%d", address, port)
	return &Server{
		listenFD: fd,
		store:    store.New(),
		conns:    make(map[int]*Conn),
	}, nil
}

func sockaddrFor(address string, port int) (*unix.SockaddrInet4, error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return nil, errors.Errorf("server: invalid address %q", address)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, errors.Errorf("server: address %q is not IPv4", address)
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip4)
	return sa, nil
}

// Addr reports the address and port the listener is actually bound to,
// useful when New was called with port 0 and the kernel picked one.
func (s *Server) Addr() (string, int, error) {
	sa, err := unix.Getsockname(s.listenFD)
	if err != nil {
		return "", 0, errors.Wrap(err, "server: getsockname")
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", 0, errors.New("server: listener is not IPv4")
	}
	ip := net.IP(in4.Addr[:])
	return ip.String(), in4.Port, nil
}

// Close signals Serve to stop, shuts the listening socket down, and closes
// the listener fd. The shutdown is what wakes a poll(2) call blocked on the
// listener; closing the fd alone does not. It is safe to call from outside
// the Serve loop (e.g. a signal handler): it never touches s.conns, which
// stays owned by whichever goroutine is running Serve. That goroutine
// tears down every open connection itself once its loop notices closed
// and returns.
func (s *Server) Close() error {
	s.closed.Store(true)
	unix.Shutdown(s.listenFD, unix.SHUT_RDWR)
	return unix.Close(s.listenFD)
}

// Serve runs the event loop until Close is called or poll fails. It never
// spawns a goroutine: the listener and every connection are multiplexed
// through repeated calls to poll(2). s.conns is only ever touched from
// here, so Close signaling shutdown via the atomic flag is all the
// cross-goroutine coordination this needs.
func (s *Server) Serve() error {
	for !s.closed.Load() {
		fds, order := s.buildPollSet()

		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if s.closed.Load() {
				break
			}
			return errors.Wrap(err, "server: poll")
		}
		if s.closed.Load() {
			break
		}
		if n == 0 {
			continue
		}

		if fds[0].Revents&(unix.POLLIN|unix.POLLERR) != 0 {
			s.acceptAll()
		}

		for i, fd := range order {
			revents := fds[i+1].Revents
			if revents == 0 {
				continue
			}
			c, ok := s.conns[fd]
			if !ok {
				continue
			}
			if revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
				s.handleReadable(c)
			}
			if !c.wantClose && revents&unix.POLLOUT != 0 {
				s.handleWritable(c)
			}
			if c.wantClose && len(c.outgoing) == 0 {
				s.closeConn(c)
			}
		}
	}
	s.closeAllConns()
	return nil
}

// closeAllConns tears down every live connection. Only Serve's own
// goroutine calls this, on the way out of its loop, so it needs no
// synchronization with Close.
func (s *Server) closeAllConns() {
	for fd := range s.conns {
		unix.Close(fd)
		delete(s.conns, fd)
	}
}

func (s *Server) buildPollSet() ([]unix.PollFd, []int) {
	fds := make([]unix.PollFd, 0, len(s.conns)+1)
	fds = append(fds, unix.PollFd{Fd: int32(s.listenFD), Events: unix.POLLIN})

	order := make([]int, 0, len(s.conns))
	for fd, c := range s.conns {
		var events int16
		if c.wantRead {
			events |= unix.POLLIN
		}
		if c.wantWrite {
			events |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
		order = append(order, fd)
	}
	return fds, order
}

func (s *Server) acceptAll() {
	for {
		if s.maxConns > 0 && len(s.conns) >= s.maxConns {
			return
		}
		fd, _, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				log.Printf("server: accept: %v", err)
			}
			return
		}
		s.conns[fd] = &Conn{fd: fd, wantRead: true}
	}
}

func (s *Server) handleReadable(c *Conn) {
	buf := make([]byte, readChunk)
	for {
		n, err := unix.Read(c.fd, buf)
		switch {
		case n > 0:
			c.incoming = append(c.incoming, buf[:n]...)
		case n == 0 && err == nil:
			if len(c.incoming) > 0 {
				log.Printf("server: fd %d: unexpected EOF with %d bytes of an incomplete frame buffered", c.fd, len(c.incoming))
			}
			c.wantClose = true
		}
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				c.wantClose = true
			}
			break
		}
		if n == 0 || n < len(buf) {
			break
		}
	}
	s.processIncoming(c)
}

// processIncoming drains every complete frame currently buffered, runs it
// through the dispatcher, and queues the reply. A frame that is oversized
// or fails to parse as a request (truncated argument, trailing bytes,
// nstr over MaxArgs) is protocol-fatal: the connection is marked for
// close without a reply, never reaching the dispatcher. Only a
// well-formed frame the command table rejects (unknown command, wrong
// arity) gets a command-level ERR reply.
func (s *Server) processIncoming(c *Conn) {
	consumedTotal := 0
	for {
		body, consumed, tooBig, ok := protocol.TryExtractFrame(c.incoming[consumedTotal:])
		if tooBig {
			c.wantClose = true
			break
		}
		if !ok {
			break
		}

		argv, err := protocol.ParseRequest(body)
		if err != nil {
			c.wantClose = true
			break
		}
		consumedTotal += consumed

		reply := dispatch.Dispatch(s.store, argv)
		var out bytes.Buffer
		protocol.EncodeResponse(&out, reply)
		c.outgoing = append(c.outgoing, out.Bytes()...)
	}
	if consumedTotal > 0 {
		c.incoming = append([]byte(nil), c.incoming[consumedTotal:]...)
	}

	c.wantWrite = len(c.outgoing) > 0
	c.wantRead = !c.wantClose && !c.wantWrite
}

func (s *Server) handleWritable(c *Conn) {
	for len(c.outgoing) > 0 {
		n, err := unix.Write(c.fd, c.outgoing)
		if n > 0 {
			c.outgoing = c.outgoing[n:]
		}
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				c.wantClose = true
			}
			break
		}
		if n == 0 {
			break
		}
	}
	c.wantWrite = len(c.outgoing) > 0
	c.wantRead = !c.wantClose && !c.wantWrite
}

func (s *Server) closeConn(c *Conn) {
	unix.Close(c.fd)
	delete(s.conns, c.fd)
}
