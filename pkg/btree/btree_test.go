package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/pkg/heap"
)

func setupRelation(t *testing.T) *heap.Relation {
	dir := t.TempDir()
	r, err := heap.Create(dir, "foo", []string{"a", "b"}, []heap.ColumnAttribute{heap.AttrInt, heap.AttrInt})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestLookupAfterInsert(t *testing.T) {
	r := setupRelation(t)
	for i := int32(0); i < 10; i++ {
		_, err := r.Insert(heap.NewRow(heap.Col("a", heap.IntValue(i)), heap.Col("b", heap.IntValue(-i))))
		require.NoError(t, err)
	}

	dir := t.TempDir()
	idx, err := Create(filepath.Join(dir, FileName("foo", "ix")), "foo", "ix", []string{"a"}, []heap.ColumnAttribute{heap.AttrInt}, r)
	require.NoError(t, err)
	defer idx.Close()

	handles, err := idx.Lookup(heap.NewRow(heap.Col("a", heap.IntValue(5))))
	require.NoError(t, err)
	require.Len(t, handles, 1)

	row, err := r.Project(handles[0])
	require.NoError(t, err)
	v, _ := row.Get("b")
	require.Equal(t, int32(-5), v.I)

	handles, err = idx.Lookup(heap.NewRow(heap.Col("a", heap.IntValue(999))))
	require.NoError(t, err)
	require.Len(t, handles, 0)
}

func TestLargeInsertTriggersSplitsAndStaysConsistent(t *testing.T) {
	r := setupRelation(t)

	const n = 2000
	for i := int32(0); i < n; i++ {
		_, err := r.Insert(heap.NewRow(heap.Col("a", heap.IntValue(i+100)), heap.Col("b", heap.IntValue(-i))))
		require.NoError(t, err)
	}

	dir := t.TempDir()
	idx, err := Create(filepath.Join(dir, FileName("foo", "ix")), "foo", "ix", []string{"a"}, []heap.ColumnAttribute{heap.AttrInt}, r)
	require.NoError(t, err)
	defer idx.Close()

	require.Greater(t, idx.st.height, uint32(1))

	for i := int32(0); i < n; i += 97 {
		handles, err := idx.Lookup(heap.NewRow(heap.Col("a", heap.IntValue(i+100))))
		require.NoError(t, err)
		require.Len(t, handles, 1)

		row, err := r.Project(handles[0])
		require.NoError(t, err)
		v, _ := row.Get("b")
		require.Equal(t, -i, v.I)
	}

	handles, err := idx.Lookup(heap.NewRow(heap.Col("a", heap.IntValue(6))))
	require.NoError(t, err)
	require.Len(t, handles, 0)
}

func TestDuplicateKeyRejected(t *testing.T) {
	r := setupRelation(t)
	_, err := r.Insert(heap.NewRow(heap.Col("a", heap.IntValue(1)), heap.Col("b", heap.IntValue(1))))
	require.NoError(t, err)
	h2, err := r.Insert(heap.NewRow(heap.Col("a", heap.IntValue(1)), heap.Col("b", heap.IntValue(2))))
	require.NoError(t, err)

	dir := t.TempDir()
	idx, err := Create(filepath.Join(dir, FileName("foo", "ix")), "foo", "ix", []string{"a"}, []heap.ColumnAttribute{heap.AttrInt}, r)
	require.Error(t, err)
	_ = idx
	_ = h2
}

func TestKeyOrderingAcrossSignAndLength(t *testing.T) {
	neg := Key{mustEncodeInt(t, -5)}
	zero := Key{mustEncodeInt(t, 0)}
	pos := Key{mustEncodeInt(t, 5)}

	require.True(t, Compare(neg, zero) < 0)
	require.True(t, Compare(zero, pos) < 0)
	require.True(t, Compare(neg, pos) < 0)

	short := Key{[]byte("ab")}
	long := Key{[]byte("abc")}
	require.True(t, Compare(short, long) < 0)
}

func mustEncodeInt(t *testing.T, i int32) []byte {
	b, err := encodeComponent(heap.IntValue(i))
	require.NoError(t, err)
	return b
}
