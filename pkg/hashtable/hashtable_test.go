package hashtable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kv struct {
	key string
	val int
}

func keyEq(key string) func(*kv) bool {
	return func(v *kv) bool { return v.key == key }
}

func insertKV(t *testing.T, m *HMap[*kv], key string, val int) {
	t.Helper()
	m.Insert(NewNode(FNV1a64([]byte(key)), &kv{key: key, val: val}))
}

func TestHMapInsertLookupDelete(t *testing.T) {
	m := NewHMap[*kv]()

	insertKV(t, m, "foo", 1)
	insertKV(t, m, "bar", 2)

	node := m.Lookup(FNV1a64([]byte("foo")), keyEq("foo"))
	require.NotNil(t, node)
	assert.Equal(t, 1, node.Val.val)

	assert.Nil(t, m.Lookup(FNV1a64([]byte("missing")), keyEq("missing")))

	removed := m.Delete(FNV1a64([]byte("foo")), keyEq("foo"))
	require.NotNil(t, removed)
	assert.Equal(t, 1, removed.Val.val)
	assert.Nil(t, m.Lookup(FNV1a64([]byte("foo")), keyEq("foo")))
}

func TestHMapProgressiveRehash(t *testing.T) {
	m := NewHMap[*kv]()
	const n = 5000
	for i := 0; i < n; i++ {
		insertKV(t, m, fmt.Sprintf("key-%d", i), i)
	}
	assert.Equal(t, n, m.Len())

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		node := m.Lookup(FNV1a64([]byte(key)), keyEq(key))
		require.NotNil(t, node, "missing %s", key)
		assert.Equal(t, i, node.Val.val)
	}

	for i := 0; i < n; i += 2 {
		key := fmt.Sprintf("key-%d", i)
		require.NotNil(t, m.Delete(FNV1a64([]byte(key)), keyEq(key)))
	}
	assert.Equal(t, n/2, m.Len())
}

func TestHMapForEach(t *testing.T) {
	m := NewHMap[*kv]()
	want := map[string]bool{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		want[key] = true
		insertKV(t, m, key, i)
	}
	got := map[string]bool{}
	m.ForEach(func(v *kv) { got[v.key] = true })
	assert.Equal(t, want, got)
}

func TestFNV1a64Deterministic(t *testing.T) {
	// FNV-1a is deterministic; two distinct keys must not collide under
	// this small sample, and repeated hashing must be stable.
	a := FNV1a64([]byte("foo"))
	b := FNV1a64([]byte("foo"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, FNV1a64([]byte("bar")))
}
