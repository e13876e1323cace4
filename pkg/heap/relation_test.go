package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tempRelation(t *testing.T, name string, colNames []string, colAttrs []ColumnAttribute) *Relation {
	dir := t.TempDir()
	r, err := Create(dir, name, colNames, colAttrs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestInsertProjectRoundTrip(t *testing.T) {
	r := tempRelation(t, "foo", []string{"id", "data"}, []ColumnAttribute{AttrInt, AttrText})

	h, err := r.Insert(NewRow(Col("id", IntValue(1)), Col("data", TextValue("one"))))
	require.NoError(t, err)

	row, err := r.Project(h)
	require.NoError(t, err)

	v, ok := row.Get("id")
	require.True(t, ok)
	require.Equal(t, int32(1), v.I)

	v, ok = row.Get("data")
	require.True(t, ok)
	require.Equal(t, "one", v.S)
}

func TestSelectWhereEqualityConjunction(t *testing.T) {
	r := tempRelation(t, "foo", []string{"id", "data"}, []ColumnAttribute{AttrInt, AttrText})

	for _, row := range []Row{
		NewRow(Col("id", IntValue(1)), Col("data", TextValue("one"))),
		NewRow(Col("id", IntValue(2)), Col("data", TextValue("two"))),
		NewRow(Col("id", IntValue(3)), Col("data", TextValue("three"))),
	} {
		_, err := r.Insert(row)
		require.NoError(t, err)
	}

	handles, err := r.SelectWhere(map[string]Value{"id": IntValue(3)})
	require.NoError(t, err)
	require.Len(t, handles, 1)

	row, err := r.Project(handles[0])
	require.NoError(t, err)
	v, _ := row.Get("data")
	require.Equal(t, "three", v.S)

	handles, err = r.SelectWhere(map[string]Value{"id": IntValue(99), "data": TextValue("nine")})
	require.NoError(t, err)
	require.Len(t, handles, 0)
}

func TestDeleteOmitsRowFromSubsequentScans(t *testing.T) {
	r := tempRelation(t, "foo", []string{"id"}, []ColumnAttribute{AttrInt})

	h1, err := r.Insert(NewRow(Col("id", IntValue(1))))
	require.NoError(t, err)
	_, err = r.Insert(NewRow(Col("id", IntValue(2))))
	require.NoError(t, err)

	require.NoError(t, r.Del(h1))

	handles, err := r.Select()
	require.NoError(t, err)
	require.Len(t, handles, 1)
}

func TestInsertRejectsWrongSchema(t *testing.T) {
	r := tempRelation(t, "foo", []string{"id", "data"}, []ColumnAttribute{AttrInt, AttrText})

	_, err := r.Insert(NewRow(Col("id", IntValue(1))))
	require.Error(t, err)

	_, err = r.Insert(NewRow(Col("id", TextValue("oops")), Col("data", TextValue("x"))))
	require.Error(t, err)
}

func TestAppendAllocatesNewPageWhenFull(t *testing.T) {
	r := tempRelation(t, "foo", []string{"data"}, []ColumnAttribute{AttrText})

	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = 'x'
	}

	inserted := 0
	for i := 0; i < 40; i++ {
		_, err := r.Insert(NewRow(Col("data", TextValue(string(payload)))))
		require.NoError(t, err)
		inserted++
	}

	require.Greater(t, uint32(r.hf.LastBlockID()), uint32(1))

	handles, err := r.Select()
	require.NoError(t, err)
	require.Len(t, handles, inserted)
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	cols := []string{"id"}
	attrs := []ColumnAttribute{AttrInt}

	r, err := Create(dir, "foo", cols, attrs)
	require.NoError(t, err)
	_, err = r.Insert(NewRow(Col("id", IntValue(42))))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r2, err := Open(dir, "foo", cols, attrs)
	require.NoError(t, err)
	defer r2.Close()

	handles, err := r2.Select()
	require.NoError(t, err)
	require.Len(t, handles, 1)

	row, err := r2.Project(handles[0])
	require.NoError(t, err)
	v, _ := row.Get("id")
	require.Equal(t, int32(42), v.I)
}
