// Package zset implements an ordered set: a collection of (name, score)
// pairs, unique by name, ordered by (score, name). It pairs an
// order-statistic AVL tree (package avltree) for range/rank queries with a
// hash table (package hashtable) for O(1) lookup by name, the same
// two-index structure the retrieved reference implementation's zset.h/
// zset.cpp use.
package zset

import (
	"bytes"

	"github.com/reactorkv/reactorkv/pkg/avltree"
	"github.com/reactorkv/reactorkv/pkg/hashtable"
)

// ZNode is one member of a ZSet: a name with a score, indexed both by the
// AVL tree (ordered by score then name) and the hash table (keyed by
// name). Callers reach a member only through ZSet's methods; a ZNode's
// fields are read-only from the outside.
type ZNode struct {
	tree  avltree.Node[*ZNode]
	hnode hashtable.HNode[*ZNode]
	Score float64
	Name  []byte
}

func newZNode(name []byte, score float64) *ZNode {
	z := &ZNode{Score: score, Name: append([]byte(nil), name...)}
	z.tree = *avltree.NewNode(z)
	z.hnode = *hashtable.NewNode(hashtable.FNV1a64(z.Name), z)
	return z
}

// less orders by (score, name), matching the comparator the reference
// zset.cpp uses for its tree.
func less(a, b *ZNode) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return bytes.Compare(a.Name, b.Name) < 0
}

// ZSet is an ordered set of (name, score) pairs.
type ZSet struct {
	root *avltree.Node[*ZNode]
	hmap *hashtable.HMap[*ZNode]
}

// New returns an empty ordered set.
func New() *ZSet {
	return &ZSet{hmap: hashtable.NewHMap[*ZNode]()}
}

// Len reports the number of members.
func (z *ZSet) Len() int {
	return z.hmap.Len()
}

func nameEq(name []byte) func(*ZNode) bool {
	return func(zn *ZNode) bool { return bytes.Equal(zn.Name, name) }
}

// Lookup returns the member named name, or nil if it is absent.
func (z *ZSet) Lookup(name []byte) *ZNode {
	n := z.hmap.Lookup(hashtable.FNV1a64(name), nameEq(name))
	if n == nil {
		return nil
	}
	return n.Val
}

// Insert adds name at score, or repositions it if it already exists with a
// different score. It reports whether a new member was created.
func (z *ZSet) Insert(name []byte, score float64) bool {
	if existing := z.Lookup(name); existing != nil {
		if existing.Score != score {
			avltree.Delete(&z.root, &existing.tree)
			existing.Score = score
			existing.tree = *avltree.NewNode(existing)
			avltree.Insert(&z.root, &existing.tree, treeLess)
		}
		return false
	}

	zn := newZNode(name, score)
	z.hmap.Insert(&zn.hnode)
	avltree.Insert(&z.root, &zn.tree, treeLess)
	return true
}

func treeLess(a, b *avltree.Node[*ZNode]) bool {
	return less(a.Val, b.Val)
}

// Delete removes name, reporting whether it was present.
func (z *ZSet) Delete(name []byte) bool {
	zn := z.Lookup(name)
	if zn == nil {
		return false
	}
	z.hmap.Delete(hashtable.FNV1a64(name), nameEq(name))
	avltree.Delete(&z.root, &zn.tree)
	return true
}

// SeekGE returns the first member in (score, name) order that is greater
// than or equal to (score, name), or nil if none qualifies.
func (z *ZSet) SeekGE(score float64, name []byte) *ZNode {
	var candidate *avltree.Node[*ZNode]
	cur := z.root
	target := &ZNode{Score: score, Name: name}
	for cur != nil {
		if less(cur.Val, target) {
			cur = avltree.Right(cur)
		} else {
			candidate = cur
			cur = avltree.Left(cur)
		}
	}
	if candidate == nil {
		return nil
	}
	return candidate.Val
}

// Offset returns the member k positions away from zn in (score, name)
// order, or nil if that position falls outside the set.
func (z *ZSet) Offset(zn *ZNode, k int64) *ZNode {
	n := avltree.Offset(&zn.tree, k)
	if n == nil {
		return nil
	}
	return n.Val
}

// Rank returns zn's zero-based position in (score, name) order.
func (z *ZSet) Rank(zn *ZNode) int64 {
	return avltree.Rank(&zn.tree)
}

// ForEach visits every member. Order is unspecified.
func (z *ZSet) ForEach(fn func(*ZNode)) {
	z.hmap.ForEach(fn)
}

