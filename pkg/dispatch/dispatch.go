// Package dispatch implements the command dispatcher: it validates a
// request's argv against a fixed command table (name + arity) and invokes
// the matching handler against a store.Store, producing exactly one
// protocol.Value reply. Nothing outside this table is reachable: a
// connection cannot invoke any store method the table doesn't name.
package dispatch

import (
	"strconv"

	"github.com/reactorkv/reactorkv/pkg/protocol"
	"github.com/reactorkv/reactorkv/pkg/store"
)

type handlerFunc func(s *store.Store, argv [][]byte) protocol.Value

type command struct {
	arity   int // exact number of argv entries, including the command name
	handler handlerFunc
}

var table = map[string]command{
	"get":    {2, handleGet},
	"set":    {3, handleSet},
	"del":    {2, handleDel},
	"keys":   {1, handleKeys},
	"zadd":   {4, handleZAdd},
	"zrem":   {3, handleZRem},
	"zscore": {3, handleZScore},
	"zquery": {6, handleZQuery},
}

var errBadCommand = protocol.Err("ERR bad command")
var errWrongType = protocol.Err("ERR WRONGTYPE")

// Dispatch validates argv against the command table and runs the matching
// handler, returning the single reply value to send back to the client.
func Dispatch(s *store.Store, argv [][]byte) protocol.Value {
	if len(argv) == 0 {
		return errBadCommand
	}
	cmd, ok := table[string(argv[0])]
	if !ok || len(argv) != cmd.arity {
		return errBadCommand
	}
	return cmd.handler(s, argv)
}

func handleGet(s *store.Store, argv [][]byte) protocol.Value {
	v, found, err := s.Get(argv[1])
	if err != nil {
		return errWrongType
	}
	if !found {
		return protocol.Nil()
	}
	return protocol.Str(v)
}

func handleSet(s *store.Store, argv [][]byte) protocol.Value {
	if err := s.Set(argv[1], argv[2]); err != nil {
		return errWrongType
	}
	return protocol.Nil()
}

func handleDel(s *store.Store, argv [][]byte) protocol.Value {
	if s.Del(argv[1]) {
		return protocol.Int(1)
	}
	return protocol.Int(0)
}

func handleKeys(s *store.Store, _ [][]byte) protocol.Value {
	keys := s.Keys()
	items := make([]protocol.Value, len(keys))
	for i, k := range keys {
		items[i] = protocol.Str(k)
	}
	return protocol.Arr(items...)
}

func handleZAdd(s *store.Store, argv [][]byte) protocol.Value {
	score, err := strconv.ParseFloat(string(argv[2]), 64)
	if err != nil {
		return errBadCommand
	}
	inserted, err := s.ZAdd(argv[1], score, argv[3])
	if err != nil {
		return errWrongType
	}
	if inserted {
		return protocol.Int(1)
	}
	return protocol.Int(0)
}

func handleZRem(s *store.Store, argv [][]byte) protocol.Value {
	removed, err := s.ZRem(argv[1], argv[2])
	if err != nil {
		return errWrongType
	}
	if removed {
		return protocol.Int(1)
	}
	return protocol.Int(0)
}

func handleZScore(s *store.Store, argv [][]byte) protocol.Value {
	score, found, err := s.ZScore(argv[1], argv[2])
	if err != nil {
		return errWrongType
	}
	if !found {
		return protocol.Nil()
	}
	return protocol.StrString(formatScore(score))
}

func handleZQuery(s *store.Store, argv [][]byte) protocol.Value {
	score, err := strconv.ParseFloat(string(argv[2]), 64)
	if err != nil {
		return errBadCommand
	}
	offset, err := strconv.ParseInt(string(argv[4]), 10, 64)
	if err != nil {
		return errBadCommand
	}
	limit, err := strconv.ParseInt(string(argv[5]), 10, 64)
	if err != nil {
		return errBadCommand
	}

	var name []byte
	if len(argv[3]) > 0 {
		name = argv[3]
	}
	members, err := s.ZQuery(argv[1], score, name, offset, limit)
	if err != nil {
		return errWrongType
	}
	items := make([]protocol.Value, 0, len(members)*2)
	for _, m := range members {
		items = append(items, protocol.Str(m.Name), protocol.StrString(formatScore(m.Score)))
	}
	return protocol.Arr(items...)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', -1, 64)
}
