// Package reactorkv collects the package-level overview for everything
// under pkg/ and internal/server; it holds no code of its own.
//
// # Data Model
//
// The store is one hash table keyed by name. Each entry carries a type
// tag: a string entry holds a []byte value; a sorted-set entry holds a
// zset.ZSet. Commands that expect one type reject the other with a
// WRONGTYPE error rather than a protocol-level failure.
//
// # Concurrency
//
// The server runs as a single goroutine executing a non-blocking event
// loop; every command runs to completion before the next frame is
// processed, so the keyspace is implicitly linearizable and needs no
// locking. pkg/client is the exception: it is safe for concurrent use
// from multiple goroutines, each borrowing its own pooled connection.
//
// # Wire Protocol
//
// Every frame, request or response, is a u32 little-endian length
// prefix followed by that many bytes of body. Requests
// encode an argument count followed by length-prefixed argument
// strings; responses encode a single protocol.Value (NIL, ERR, STR,
// INT, or ARR).
//
// # Sorted Sets
//
// A sorted set orders its members by (score, name) using an AVL tree
// annotated with subtree size, giving O(log n) rank and offset-by-rank
// lookups, and indexes members by name in a hash table for O(1)
// membership and score lookup.
package reactorkv
