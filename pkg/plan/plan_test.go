package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/pkg/heap"
)

func setupRelation(t *testing.T) *heap.Relation {
	dir := t.TempDir()
	r, err := heap.Create(dir, "foo", []string{"id", "data"}, []heap.ColumnAttribute{heap.AttrInt, heap.AttrText})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	for _, row := range []heap.Row{
		heap.NewRow(heap.Col("id", heap.IntValue(1)), heap.Col("data", heap.TextValue("one"))),
		heap.NewRow(heap.Col("id", heap.IntValue(2)), heap.Col("data", heap.TextValue("two"))),
		heap.NewRow(heap.Col("id", heap.IntValue(3)), heap.Col("data", heap.TextValue("three"))),
	} {
		_, err := r.Insert(row)
		require.NoError(t, err)
	}
	return r
}

func TestScanSelectProject(t *testing.T) {
	r := setupRelation(t)

	root := &Project{
		Columns: []string{"data"},
		Child: &Select{
			Where: map[string]heap.Value{"id": heap.IntValue(2)},
			Child: &TableScan{Rel: r},
		},
	}

	rows, err := Evaluate(root)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, ok := rows[0].Get("data")
	require.True(t, ok)
	require.Equal(t, "two", v.S)
}

func TestPipelineReturnsHandlesForDelete(t *testing.T) {
	r := setupRelation(t)

	root := &Select{
		Where: map[string]heap.Value{"id": heap.IntValue(3)},
		Child: &TableScan{Rel: r},
	}

	rel, handles, err := Pipeline(root)
	require.NoError(t, err)
	require.Same(t, r, rel)
	require.Len(t, handles, 1)
}

func TestSelectWithNoMatchesReturnsEmpty(t *testing.T) {
	r := setupRelation(t)

	root := &Project{
		Columns: []string{"id", "data"},
		Child: &Select{
			Where: map[string]heap.Value{"id": heap.IntValue(99), "data": heap.TextValue("nine")},
			Child: &TableScan{Rel: r},
		},
	}

	rows, err := Evaluate(root)
	require.NoError(t, err)
	require.Len(t, rows, 0)
}
