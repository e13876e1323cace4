package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/pkg/heap"
)

func TestBootstrapIsReflexive(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	colNames, colAttrs, err := c.tableSchema(TablesName)
	require.NoError(t, err)
	require.Equal(t, []string{"table_name"}, colNames)
	require.Equal(t, []heap.ColumnAttribute{heap.AttrText}, colAttrs)

	names, err := c.GetIndexNames("anything")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestReopenPreservesBootstrapWithoutDuplication(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c2, err := Open(dir)
	require.NoError(t, err)
	defer c2.Close()

	handles, err := c2.Tables.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(TablesName)})
	require.NoError(t, err)
	require.Len(t, handles, 1)
}

func TestGetTableCachesByName(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	rel, err := heap.Create(dir, "foo", []string{"id"}, []heap.ColumnAttribute{heap.AttrInt})
	require.NoError(t, err)
	require.NoError(t, rel.Close())

	for _, col := range []string{"id"} {
		_, err := c.Columns.Insert(heap.NewRow(
			heap.Col("table_name", heap.TextValue("foo")),
			heap.Col("column_name", heap.TextValue(col)),
			heap.Col("data_type", heap.TextValue("INT")),
		))
		require.NoError(t, err)
	}

	got1, err := c.GetTable("foo")
	require.NoError(t, err)

	got2, err := c.GetTable("foo")
	require.NoError(t, err)

	require.Same(t, got1, got2)
}
