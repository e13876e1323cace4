package astadapter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/pkg/heap"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE foo (id INT, data TEXT)")
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTable)
	require.True(t, ok)
	require.Equal(t, "foo", ct.Table)
	require.Equal(t, []ColumnDef{{Name: "id", Attr: heap.AttrInt}, {Name: "data", Attr: heap.AttrText}}, ct.Columns)
}

func TestParseCreateIndex(t *testing.T) {
	stmt, err := Parse("CREATE INDEX fx ON foo (id)")
	require.NoError(t, err)

	ci, ok := stmt.(*CreateIndex)
	require.True(t, ok)
	require.Equal(t, "foo", ci.Table)
	require.Equal(t, "fx", ci.Index)
	require.Equal(t, []string{"id"}, ci.Columns)
}

func TestParseInsertWithoutColumnList(t *testing.T) {
	stmt, err := Parse("INSERT INTO foo VALUES (1, 'one')")
	require.NoError(t, err)

	ins, ok := stmt.(*Insert)
	require.True(t, ok)
	require.Nil(t, ins.Columns)
	require.Equal(t, []heap.Value{heap.IntValue(1), heap.TextValue("one")}, ins.Values)
}

func TestParseInsertWithColumnList(t *testing.T) {
	stmt, err := Parse("INSERT INTO foo (data, id) VALUES ('one', 1)")
	require.NoError(t, err)

	ins, ok := stmt.(*Insert)
	require.True(t, ok)
	require.Equal(t, []string{"data", "id"}, ins.Columns)
}

func TestParseSelectStarWithWhere(t *testing.T) {
	stmt, err := Parse("SELECT * FROM foo WHERE id = 1 AND data = 'one'")
	require.NoError(t, err)

	sel, ok := stmt.(*Select)
	require.True(t, ok)
	require.True(t, sel.IsStar())
	require.Equal(t, heap.IntValue(1), sel.Where["id"])
	require.Equal(t, heap.TextValue("one"), sel.Where["data"])
}

func TestParseSelectColumnsNoWhere(t *testing.T) {
	stmt, err := Parse("SELECT id, data FROM foo")
	require.NoError(t, err)

	sel, ok := stmt.(*Select)
	require.True(t, ok)
	require.Equal(t, []string{"id", "data"}, sel.Columns)
	require.Nil(t, sel.Where)
}

func TestParseDeleteWithWhere(t *testing.T) {
	stmt, err := Parse("DELETE FROM foo WHERE id = 1")
	require.NoError(t, err)

	del, ok := stmt.(*Delete)
	require.True(t, ok)
	require.Equal(t, "foo", del.Table)
	require.Equal(t, heap.IntValue(1), del.Where["id"])
}

func TestParseShowStatements(t *testing.T) {
	stmt, err := Parse("SHOW TABLES")
	require.NoError(t, err)
	require.IsType(t, &ShowTables{}, stmt)

	stmt, err = Parse("SHOW COLUMNS FROM foo")
	require.NoError(t, err)
	require.Equal(t, &ShowColumns{Table: "foo"}, stmt)

	stmt, err = Parse("SHOW INDEX FROM foo")
	require.NoError(t, err)
	require.Equal(t, &ShowIndex{Table: "foo"}, stmt)
}

func TestParseDropStatements(t *testing.T) {
	stmt, err := Parse("DROP TABLE foo")
	require.NoError(t, err)
	require.Equal(t, &DropTable{Table: "foo"}, stmt)

	stmt, err = Parse("DROP INDEX fx FROM foo")
	require.NoError(t, err)
	require.Equal(t, &DropIndex{Table: "foo", Index: "fx"}, stmt)
}

func TestParseUnrecognizedStatement(t *testing.T) {
	_, err := Parse("FROB BAZ")
	require.Error(t, err)
}
