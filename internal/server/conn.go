package server

// Conn is the state machine for one accepted TCP connection: everything
// the event loop needs to decide what to wait for and what to do next sits
// here, never blocking on the socket itself.
type Conn struct {
	fd int

	incoming []byte // bytes read but not yet parsed into a complete frame
	outgoing []byte // bytes encoded but not yet written to the socket

	wantRead  bool
	wantWrite bool
	wantClose bool
}
