// Command reactorkv-server runs the TCP key-value server; see
// cmd/server for the entry point and pkg/doc.go for the data model,
// concurrency and wire-protocol overview.
//
// # Architecture Overview
//
// reactorkv consists of:
//
//   - internal/server: single-threaded, non-blocking event loop (one
//     poll(2) call per iteration) that accepts connections and dispatches
//     requests against a store.Store
//   - pkg/store: the keyspace, a hash table of typed entries, some
//     holding a plain string, some holding a sorted set
//   - pkg/hashtable: progressively-rehashing open hash table used by the
//     store and by every sorted set's name index
//   - pkg/avltree: order-statistic AVL tree (rank and offset-by-rank in
//     O(log n)) underlying every sorted set's score ordering
//   - pkg/zset: sorted sets, combining pkg/hashtable and pkg/avltree
//   - pkg/protocol: the TLV wire codec and its length-prefixed framing
//   - pkg/dispatch: the command table mapping request argv to store
//     operations
//   - pkg/client: a connection-pooled client SDK speaking the same wire
//     protocol
//   - pkg/config: flag- and environment-variable-driven configuration
//
// # Quick Start
//
// Server:
//
//	cfg := config.LoadServerConfig()
//	srv, err := server.New(cfg.Host, cfg.Port)
//	log.Fatal(srv.Serve())
//
// Client:
//
//	c := client.New("localhost:1234")
//	defer c.Close()
//	c.Set("user:123", "john_doe")
//	value, ok, err := c.Get("user:123")
//
// # Supported Commands
//
// Strings:
//   - GET, SET, DEL, KEYS
//
// Sorted sets:
//   - ZADD, ZREM, ZSCORE, ZQUERY
//
// # Configuration
//
//	./reactorkv-server -host 0.0.0.0 -port 1234 -max-conns 1000
//	# or
//	REACTORKV_PORT=1234 REACTORKV_MAX_CONNS=1000 ./reactorkv-server
package main
