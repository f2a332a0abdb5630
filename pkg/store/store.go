// Package store holds the server's keyspace: every top-level key maps to
// exactly one Entry, which is either a plain byte-string value or a zset
// (package zset). It is the glue between the hash table (component A,
// package hashtable), the ordered set (component C, package zset), and the
// command dispatcher (package dispatch) that calls it.
package store

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/reactorkv/reactorkv/pkg/hashtable"
	"github.com/reactorkv/reactorkv/pkg/zset"
)

// EntryType distinguishes what kind of value a key holds.
type EntryType int

const (
	TypeString EntryType = iota
	TypeZSet
)

// Entry is one key's slot in the keyspace.
type Entry struct {
	node hashtable.HNode[*Entry]

	Key   []byte
	Type  EntryType
	Value []byte    // valid when Type == TypeString
	ZSet  *zset.ZSet // valid when Type == TypeZSet
}

// ErrWrongType is returned when a command addresses a key holding the
// other entry type (e.g. zadd against a string key).
var ErrWrongType = errors.New("store: key holds the wrong type")

// Store is the server's entire keyspace.
type Store struct {
	hmap *hashtable.HMap[*Entry]
}

// New returns an empty store.
func New() *Store {
	return &Store{hmap: hashtable.NewHMap[*Entry]()}
}

func keyEq(key []byte) func(*Entry) bool {
	return func(e *Entry) bool { return bytes.Equal(e.Key, key) }
}

func (s *Store) lookup(key []byte) *Entry {
	n := s.hmap.Lookup(hashtable.FNV1a64(key), keyEq(key))
	if n == nil {
		return nil
	}
	return n.Val
}

func (s *Store) insertNew(key []byte, typ EntryType) *Entry {
	e := &Entry{Key: append([]byte(nil), key...), Type: typ}
	e.node = *hashtable.NewNode(hashtable.FNV1a64(e.Key), e)
	s.hmap.Insert(&e.node)
	return e
}

// Get returns the string value at key. found is false if the key is
// absent; err is ErrWrongType if key holds a zset.
func (s *Store) Get(key []byte) (value []byte, found bool, err error) {
	e := s.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	if e.Type != TypeString {
		return nil, false, ErrWrongType
	}
	return e.Value, true, nil
}

// Set stores value at key as a string, overwriting any existing string
// there. It returns ErrWrongType if key holds a zset.
func (s *Store) Set(key, value []byte) error {
	if e := s.lookup(key); e != nil {
		if e.Type != TypeString {
			return ErrWrongType
		}
		e.Value = append([]byte(nil), value...)
		return nil
	}
	e := s.insertNew(key, TypeString)
	e.Value = append([]byte(nil), value...)
	return nil
}

// Del removes key regardless of its entry type, reporting whether it was
// present.
func (s *Store) Del(key []byte) bool {
	n := s.hmap.Delete(hashtable.FNV1a64(key), keyEq(key))
	return n != nil
}

// Keys returns every key currently in the store, string or zset alike.
// Order is unspecified.
func (s *Store) Keys() [][]byte {
	keys := make([][]byte, 0, s.hmap.Len())
	s.hmap.ForEach(func(e *Entry) { keys = append(keys, e.Key) })
	return keys
}

// zsetFor returns the zset stored at key. If the key is absent and create
// is true, a new empty zset is created there. It returns ErrWrongType if
// key holds a string.
func (s *Store) zsetFor(key []byte, create bool) (*zset.ZSet, error) {
	e := s.lookup(key)
	if e == nil {
		if !create {
			return nil, nil
		}
		e = s.insertNew(key, TypeZSet)
		e.ZSet = zset.New()
		return e.ZSet, nil
	}
	if e.Type != TypeZSet {
		return nil, ErrWrongType
	}
	return e.ZSet, nil
}

// ZAdd inserts or repositions name at score within the zset at key,
// creating the zset if key is absent. It reports whether name is new.
func (s *Store) ZAdd(key []byte, score float64, name []byte) (inserted bool, err error) {
	z, err := s.zsetFor(key, true)
	if err != nil {
		return false, err
	}
	return z.Insert(name, score), nil
}

// ZRem removes name from the zset at key, reporting whether it was
// present. A missing key is not an error; it simply removes nothing.
func (s *Store) ZRem(key, name []byte) (removed bool, err error) {
	z, err := s.zsetFor(key, false)
	if err != nil {
		return false, err
	}
	if z == nil {
		return false, nil
	}
	return z.Delete(name), nil
}

// ZScore returns the score of name within the zset at key.
func (s *Store) ZScore(key, name []byte) (score float64, found bool, err error) {
	z, err := s.zsetFor(key, false)
	if err != nil {
		return 0, false, err
	}
	if z == nil {
		return 0, false, nil
	}
	zn := z.Lookup(name)
	if zn == nil {
		return 0, false, nil
	}
	return zn.Score, true, nil
}

// ZQuery returns up to limit consecutive members of the zset at key,
// starting at the first member greater than or equal to (score, name) and
// advancing offset positions past it first.
func (s *Store) ZQuery(key []byte, score float64, name []byte, offset, limit int64) ([]*zset.ZNode, error) {
	z, err := s.zsetFor(key, false)
	if err != nil {
		return nil, err
	}
	if z == nil {
		return nil, nil
	}
	cur := z.SeekGE(score, name)
	if offset != 0 {
		if cur == nil {
			return nil, nil
		}
		cur = z.Offset(cur, offset)
	}
	var out []*zset.ZNode
	for cur != nil && int64(len(out)) < limit {
		out = append(out, cur)
		cur = z.Offset(cur, 1)
	}
	return out, nil
}
