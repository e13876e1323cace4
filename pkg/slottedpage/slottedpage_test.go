package slottedpage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/pkg/errs"
)

func TestAddGetRoundTrip(t *testing.T) {
	sp := New(1)

	id1, err := sp.Add([]byte("hello"))
	require.NoError(t, err)

	id2, err := sp.Add([]byte("world!"))
	require.NoError(t, err)

	got1, err := sp.Get(id1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got1)

	got2, err := sp.Get(id2)
	require.NoError(t, err)
	require.Equal(t, []byte("world!"), got2)
}

func TestPutShrinkAndGrow(t *testing.T) {
	sp := New(1)
	id, err := sp.Add([]byte("a medium length record"))
	require.NoError(t, err)

	require.NoError(t, sp.Put(id, []byte("short")))
	got, err := sp.Get(id)
	require.NoError(t, err)
	require.Equal(t, []byte("short"), got)
	require.True(t, int(sp.EndFree()) >= headerSz*(int(sp.NumRecords())+1)-1)

	require.NoError(t, sp.Put(id, []byte("a much longer record than before")))
	got, err = sp.Get(id)
	require.NoError(t, err)
	require.Equal(t, []byte("a much longer record than before"), got)
	require.True(t, int(sp.EndFree()) >= headerSz*(int(sp.NumRecords())+1)-1)
}

func TestDelTombstonesAndPreservesIds(t *testing.T) {
	sp := New(1)
	id1, _ := sp.Add([]byte("one"))
	id2, _ := sp.Add([]byte("two"))
	id3, _ := sp.Add([]byte("three"))

	require.NoError(t, sp.Del(id2))

	_, err := sp.Get(id2)
	require.ErrorIs(t, err, errs.ErrTombstone)

	ids := sp.Ids()
	require.Equal(t, []RecordID{id1, id3}, ids)

	// a later Add must not reuse id2.
	id4, err := sp.Add([]byte("four"))
	require.NoError(t, err)
	require.Greater(t, id4, id3)
}

func TestAddFailsWhenFull(t *testing.T) {
	sp := New(1)
	big := make([]byte, 4096)
	_, err := sp.Add(big)
	require.ErrorIs(t, err, errs.ErrNoRoom)
}

func TestCompactionInvariantAfterManyOps(t *testing.T) {
	sp := New(1)
	var ids []RecordID
	for i := 0; i < 50; i++ {
		id, err := sp.Add([]byte("record-payload"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i, id := range ids {
		if i%2 == 0 {
			require.NoError(t, sp.Del(id))
		}
	}

	for i, id := range ids {
		if i%2 == 0 {
			continue
		}
		got, err := sp.Get(id)
		require.NoError(t, err)
		require.Equal(t, []byte("record-payload"), got)
	}

	require.True(t, int(sp.EndFree()) >= headerSz*(int(sp.NumRecords())+1)-1)
}

func TestOpenRoundTripsThroughBlock(t *testing.T) {
	sp := New(1)
	id, err := sp.Add([]byte("persisted"))
	require.NoError(t, err)

	blk := sp.Block().Copy()
	reopened := Open(blk)

	got, err := reopened.Get(id)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)
}
