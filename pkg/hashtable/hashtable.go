// Package hashtable implements a chained hash table with progressive
// (incremental) rehashing, so that growing the table never stalls a caller
// behind one large rehash pass.
//
// The table is intrusive in spirit: HNode carries only a hash code and a
// chain pointer, and the caller's payload rides along in the generic Val
// field rather than behind a separate allocation. Equality is supplied by
// the caller at lookup/delete time, exactly like a bucket scan in any other
// chained hash table. HMap itself never compares payloads.
package hashtable

// HNode is one link in a hash bucket's chain. The zero value is a detached
// node ready to be inserted.
type HNode[T any] struct {
	next  *HNode[T]
	hcode uint64
	Val   T
}

// NewNode allocates a detached node carrying val, hashed under hcode.
func NewNode[T any](hcode uint64, val T) *HNode[T] {
	return &HNode[T]{hcode: hcode, Val: val}
}

// HCode returns the hash code the node was inserted under.
func (n *HNode[T]) HCode() uint64 {
	return n.hcode
}

// htab is one fixed-size bucket array. Slot count is always a power of two
// so that hcode&mask replaces an expensive modulo.
type htab[T any] struct {
	tab  []*HNode[T]
	mask uint64
	size int
}

func (t *htab[T]) init(n int) {
	if n <= 0 || n&(n-1) != 0 {
		panic("hashtable: size must be a power of two")
	}
	t.tab = make([]*HNode[T], n)
	t.mask = uint64(n - 1)
	t.size = 0
}

func (t *htab[T]) insert(node *HNode[T]) {
	slot := node.hcode & t.mask
	node.next = t.tab[slot]
	t.tab[slot] = node
	t.size++
}

// lookup returns the indirect cursor pointing at the matching node's slot,
// either a bucket head (&t.tab[slot]) or a chain link (&prev.next), so the
// caller can detach in O(1) without a second walk. It returns nil if no
// node in the chain satisfies eq.
func (t *htab[T]) lookup(hcode uint64, eq func(T) bool) **HNode[T] {
	if t.tab == nil {
		return nil
	}
	slot := hcode & t.mask
	cur := &t.tab[slot]
	for *cur != nil {
		if (*cur).hcode == hcode && eq((*cur).Val) {
			return cur
		}
		cur = &(*cur).next
	}
	return nil
}

func (t *htab[T]) detach(from **HNode[T]) *HNode[T] {
	node := *from
	*from = node.next
	node.next = nil
	t.size--
	return node
}

func (t *htab[T]) forEach(fn func(T)) {
	for _, head := range t.tab {
		for n := head; n != nil; n = n.next {
			fn(n.Val)
		}
	}
}

const (
	// loadFactor is the size/capacity ratio at which HMap starts growing
	// the newer table.
	loadFactor = 2
	// rehashWork is the maximum number of entries migrated from the
	// older table to the newer table per HMap operation. Bounding this
	// keeps every insert/lookup/delete at roughly constant latency even
	// while a resize is in flight.
	rehashWork = 64
	// initCap is the bucket count a brand-new HMap starts at.
	initCap = 4
)

// HMap is a chained hash table that rehashes progressively: growth moves
// entries from an older table into a newer one a few at a time, spread
// across subsequent operations, instead of all at once.
type HMap[T any] struct {
	newer, older htab[T]
	migratePos   uint64
}

// NewHMap returns an empty map.
func NewHMap[T any]() *HMap[T] {
	return &HMap[T]{}
}

// Len reports the total number of entries across both tables.
func (m *HMap[T]) Len() int {
	return m.newer.size + m.older.size
}

// Lookup returns the node whose hash code is hcode and whose value
// satisfies eq, checking the newer table first. It returns nil on a miss.
func (m *HMap[T]) Lookup(hcode uint64, eq func(T) bool) *HNode[T] {
	m.helpRehashing()
	if cur := m.newer.lookup(hcode, eq); cur != nil {
		return *cur
	}
	if cur := m.older.lookup(hcode, eq); cur != nil {
		return *cur
	}
	return nil
}

// Insert adds node to the map under its own hash code. It never compares
// against existing nodes; callers that need upsert semantics must Lookup
// first.
func (m *HMap[T]) Insert(node *HNode[T]) {
	if m.newer.tab == nil {
		m.newer.init(initCap)
	}
	m.newer.insert(node)
	m.maybeStartResizing()
	m.helpRehashing()
}

// Delete removes and returns the node whose hash code is hcode and whose
// value satisfies eq, or nil if none matches.
func (m *HMap[T]) Delete(hcode uint64, eq func(T) bool) *HNode[T] {
	m.helpRehashing()
	if cur := m.newer.lookup(hcode, eq); cur != nil {
		return m.newer.detach(cur)
	}
	if cur := m.older.lookup(hcode, eq); cur != nil {
		return m.older.detach(cur)
	}
	return nil
}

// ForEach visits every value in the map. Order is unspecified.
func (m *HMap[T]) ForEach(fn func(T)) {
	m.newer.forEach(fn)
	m.older.forEach(fn)
}

func (m *HMap[T]) maybeStartResizing() {
	if m.older.tab != nil {
		return // already resizing
	}
	if uint64(m.newer.size) < uint64(m.newer.mask+1)*loadFactor {
		return
	}
	m.older = m.newer
	m.newer = htab[T]{}
	m.newer.init(int(m.older.mask+1) * 2)
	m.migratePos = 0
}

func (m *HMap[T]) helpRehashing() {
	work := 0
	for work < rehashWork && m.older.size > 0 {
		slot := &m.older.tab[m.migratePos]
		if *slot == nil {
			m.migratePos++
			continue
		}
		node := m.older.detach(slot)
		m.newer.insert(node)
		work++
	}
	if m.older.size == 0 && m.older.tab != nil {
		m.older = htab[T]{}
		m.migratePos = 0
	}
}

// FNV1a64 hashes key using 64-bit FNV-1a, the hash function every entry and
// zset member in this package's callers is keyed by.
func FNV1a64(key []byte) uint64 {
	const (
		offset = 0xCBF29CE484222325
		prime  = 0x100000001B3
	)
	h := uint64(offset)
	for _, b := range key {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
