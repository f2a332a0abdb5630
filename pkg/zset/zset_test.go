package zset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZSetInsertLookupDelete(t *testing.T) {
	z := New()

	assert.True(t, z.Insert([]byte("alice"), 1))
	assert.True(t, z.Insert([]byte("bob"), 2))
	assert.False(t, z.Insert([]byte("alice"), 3)) // repositioned, not new

	alice := z.Lookup([]byte("alice"))
	require.NotNil(t, alice)
	assert.Equal(t, float64(3), alice.Score)

	assert.True(t, z.Delete([]byte("bob")))
	assert.False(t, z.Delete([]byte("bob")))
	assert.Nil(t, z.Lookup([]byte("bob")))
}

func TestZSetOrderingAndSeekGE(t *testing.T) {
	z := New()
	members := []struct {
		name  string
		score float64
	}{
		{"a", 1}, {"b", 2}, {"c", 2}, {"d", 5},
	}
	for _, m := range members {
		z.Insert([]byte(m.name), m.score)
	}

	first := z.SeekGE(0, nil)
	require.NotNil(t, first)
	assert.Equal(t, "a", string(first.Name))

	mid := z.SeekGE(2, []byte("b"))
	require.NotNil(t, mid)
	assert.Equal(t, "b", string(mid.Name))

	// (2, "b") < (2, "c") in (score, name) order, so seeking (2, "bz")
	// must land on "c".
	between := z.SeekGE(2, []byte("bz"))
	require.NotNil(t, between)
	assert.Equal(t, "c", string(between.Name))

	assert.Nil(t, z.SeekGE(100, nil))
}

func TestZSetRankAndOffsetMatchInorder(t *testing.T) {
	z := New()
	const n = 300
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("member-%04d", i)
		z.Insert([]byte(names[i]), float64(i))
	}

	var inorder []*ZNode
	cur := z.SeekGE(0, nil)
	for cur != nil {
		inorder = append(inorder, cur)
		cur = z.Offset(cur, 1)
	}
	require.Len(t, inorder, n)

	for i, zn := range inorder {
		assert.Equal(t, int64(i), z.Rank(zn))
		assert.Equal(t, names[i], string(zn.Name))
	}

	mid := inorder[n/2]
	assert.Same(t, inorder[n/2-10], z.Offset(mid, -10))
	assert.Nil(t, z.Offset(mid, int64(n)))
}
