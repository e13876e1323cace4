package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/config"
	"coredb/pkg/astadapter"
	"coredb/pkg/heap"
)

func newEngine(t *testing.T) *Engine {
	dir := t.TempDir()
	e, err := New(config.New(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func createFoo(t *testing.T, e *Engine) {
	res, err := e.Exec(&astadapter.CreateTable{
		Table: "foo",
		Columns: []astadapter.ColumnDef{
			{Name: "id", Attr: heap.AttrInt},
			{Name: "data", Attr: heap.AttrText},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "created foo", res.Message)
}

func TestCreateTableThenShowTables(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)

	res, err := e.Exec(&astadapter.ShowTables{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	name, _ := res.Rows[0].Get("table_name")
	require.Equal(t, "foo", name.S)
}

func TestCreateTableRejectsDuplicate(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)

	_, err := e.Exec(&astadapter.CreateTable{
		Table:   "foo",
		Columns: []astadapter.ColumnDef{{Name: "id", Attr: heap.AttrInt}},
	})
	require.Error(t, err)
}

func TestCreateTableRejectsCatalogName(t *testing.T) {
	e := newEngine(t)
	_, err := e.Exec(&astadapter.CreateTable{Table: "_tables"})
	require.Error(t, err)
}

func TestInsertSelectDelete(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)

	res, err := e.Exec(&astadapter.Insert{
		Table:  "foo",
		Values: []heap.Value{heap.IntValue(1), heap.TextValue("one")},
	})
	require.NoError(t, err)
	require.Equal(t, "successfully inserted 1 row into foo", res.Message)

	_, err = e.Exec(&astadapter.Insert{
		Table:  "foo",
		Values: []heap.Value{heap.IntValue(2), heap.TextValue("two")},
	})
	require.NoError(t, err)

	sel, err := e.Exec(&astadapter.Select{Table: "foo"})
	require.NoError(t, err)
	require.Len(t, sel.Rows, 2)
	require.Equal(t, "successfully returned 2 rows", sel.Message)

	del, err := e.Exec(&astadapter.Delete{
		Table: "foo",
		Where: map[string]heap.Value{"id": heap.IntValue(1)},
	})
	require.NoError(t, err)
	require.Equal(t, "successfully deleted 1 row from foo", del.Message)

	sel2, err := e.Exec(&astadapter.Select{Table: "foo"})
	require.NoError(t, err)
	require.Len(t, sel2.Rows, 1)
}

func TestCreateIndexThenInsertMaintainsIndexAndRejectsDuplicateKey(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)

	ci, err := e.Exec(&astadapter.CreateIndex{Table: "foo", Index: "fx", Columns: []string{"id"}})
	require.NoError(t, err)
	require.Equal(t, "created index fx", ci.Message)

	ins, err := e.Exec(&astadapter.Insert{
		Table:  "foo",
		Values: []heap.Value{heap.IntValue(1), heap.TextValue("one")},
	})
	require.NoError(t, err)
	require.Equal(t, "successfully inserted 1 row into foo and 1 index", ins.Message)

	_, err = e.Exec(&astadapter.Insert{
		Table:  "foo",
		Values: []heap.Value{heap.IntValue(1), heap.TextValue("dup")},
	})
	require.Error(t, err)

	sel, err := e.Exec(&astadapter.Select{Table: "foo"})
	require.NoError(t, err)
	require.Len(t, sel.Rows, 1)
}

func TestSelectWithIndexedEqualityReturnsMatchingRow(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)
	_, err := e.Exec(&astadapter.CreateIndex{Table: "foo", Index: "fx", Columns: []string{"id"}})
	require.NoError(t, err)

	for i := int32(1); i <= 5; i++ {
		_, err := e.Exec(&astadapter.Insert{
			Table:  "foo",
			Values: []heap.Value{heap.IntValue(i), heap.TextValue("row")},
		})
		require.NoError(t, err)
	}

	sel, err := e.Exec(&astadapter.Select{
		Table: "foo",
		Where: map[string]heap.Value{"id": heap.IntValue(3)},
	})
	require.NoError(t, err)
	require.Len(t, sel.Rows, 1)
	v, _ := sel.Rows[0].Get("id")
	require.Equal(t, int32(3), v.I)
}

func TestDropIndexThenDropTable(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)
	_, err := e.Exec(&astadapter.CreateIndex{Table: "foo", Index: "fx", Columns: []string{"id"}})
	require.NoError(t, err)

	di, err := e.Exec(&astadapter.DropIndex{Table: "foo", Index: "fx"})
	require.NoError(t, err)
	require.Equal(t, "dropped index fx", di.Message)

	dt, err := e.Exec(&astadapter.DropTable{Table: "foo"})
	require.NoError(t, err)
	require.Equal(t, "dropped foo", dt.Message)

	res, err := e.Exec(&astadapter.ShowTables{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 0)
}

func TestDropTableRejectsCatalogRelation(t *testing.T) {
	e := newEngine(t)
	_, err := e.Exec(&astadapter.DropTable{Table: "_tables"})
	require.Error(t, err)
}

func TestDropTableDropsItsIndicesToo(t *testing.T) {
	e := newEngine(t)
	createFoo(t, e)
	_, err := e.Exec(&astadapter.CreateIndex{Table: "foo", Index: "fx", Columns: []string{"id"}})
	require.NoError(t, err)

	_, err = e.Exec(&astadapter.DropTable{Table: "foo"})
	require.NoError(t, err)

	res, err := e.Exec(&astadapter.ShowIndex{Table: "foo"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 0)
}
