// Package plan implements the small tree of logical plan nodes the
// executor builds for SELECT and DELETE (spec §4.6).
package plan

import (
	"github.com/pkg/errors"

	"coredb/pkg/btree"
	"coredb/pkg/heap"
)

// Node is a plan tree node that can be lowered to a set of matching
// handles. Design Notes (spec §9) model the tree as a single owning
// chain with the child held by value; in Go that's an interface holding
// a pointer to the next node, which achieves the same ownership shape
// without a GC-unfriendly arena.
type Node interface {
	handles() ([]heap.Handle, error)
	relation() *heap.Relation
}

// TableScan emits the handle of every live row of Rel.
type TableScan struct {
	Rel *heap.Relation
}

func (t *TableScan) handles() ([]heap.Handle, error) { return t.Rel.Select() }
func (t *TableScan) relation() *heap.Relation         { return t.Rel }

// Select filters a child node's handles by an equality-conjunction
// predicate. When the child is a bare TableScan the predicate is pushed
// into the full scan's filter callback instead of being applied as a
// second pass (spec §4.6 "pipeline() ... Selects push predicates into a
// full scan's filter callback").
type Select struct {
	Where map[string]heap.Value
	Child Node
}

func (s *Select) handles() ([]heap.Handle, error) {
	if ts, ok := s.Child.(*TableScan); ok {
		return ts.Rel.SelectWhere(s.Where)
	}

	handles, err := s.Child.handles()
	if err != nil {
		return nil, err
	}

	rel := s.Child.relation()
	out := handles[:0]
	for _, h := range handles {
		row, err := rel.Project(h)
		if err != nil {
			return nil, err
		}
		if rowMatches(row, s.Where) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Select) relation() *heap.Relation { return s.Child.relation() }

// IndexProbe replaces a Select-over-TableScan whose predicate exactly
// covers a usable unique index's key columns (the optimizer's only
// rewrite, spec §4.6).
type IndexProbe struct {
	Index *btree.BTreeIndex
	Key   heap.Row
	Rel   *heap.Relation
}

func (p *IndexProbe) handles() ([]heap.Handle, error) { return p.Index.Lookup(p.Key) }
func (p *IndexProbe) relation() *heap.Relation         { return p.Rel }

// Project realizes a child node's handles into rows restricted to
// Columns. It is the root of a SELECT plan.
type Project struct {
	Columns []string
	Child   Node
}

func rowMatches(row heap.Row, where map[string]heap.Value) bool {
	for name, want := range where {
		got, ok := row.Get(name)
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Pipeline returns the pair (relation, handles) a DELETE statement
// streams through, per spec §4.6.
func Pipeline(root Node) (*heap.Relation, []heap.Handle, error) {
	handles, err := root.handles()
	if err != nil {
		return nil, nil, err
	}
	return root.relation(), handles, nil
}

// Evaluate materializes a SELECT plan into a list of rows.
func Evaluate(p *Project) ([]heap.Row, error) {
	rel := p.Child.relation()
	handles, err := p.Child.handles()
	if err != nil {
		return nil, err
	}

	rows := make([]heap.Row, 0, len(handles))
	for _, h := range handles {
		row, err := rel.ProjectColumns(h, p.Columns)
		if err != nil {
			return nil, errors.Wrap(err, "plan: evaluate")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// IndexLookup abstracts the catalog lookups Optimize needs, kept narrow
// so this package does not depend on the catalog package's full surface
// (which would otherwise be the only import cycle risk in the module).
type IndexLookup interface {
	GetIndexNames(table string) ([]string, error)
	GetIndex(table, name string) (*btree.BTreeIndex, error)
}

// Optimize rewrites a Select over a bare TableScan into an IndexProbe if
// a usable unique index exactly covers the predicate's key columns;
// otherwise it returns root unchanged (spec §4.6, which allows a
// pass-through optimizer).
func Optimize(root Node, cat IndexLookup, table string) (Node, error) {
	sel, ok := root.(*Select)
	if !ok {
		return root, nil
	}
	ts, ok := sel.Child.(*TableScan)
	if !ok {
		return root, nil
	}

	names, err := cat.GetIndexNames(table)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		idx, err := cat.GetIndex(table, name)
		if err != nil {
			continue
		}
		if !coversExactly(idx.Columns, sel.Where) {
			continue
		}

		key := heap.Row{}
		for _, col := range idx.Columns {
			key.Set(col, sel.Where[col])
		}
		return &IndexProbe{Index: idx, Key: key, Rel: ts.Rel}, nil
	}

	return root, nil
}

func coversExactly(indexColumns []string, where map[string]heap.Value) bool {
	if len(indexColumns) != len(where) {
		return false
	}
	for _, c := range indexColumns {
		if _, ok := where[c]; !ok {
			return false
		}
	}
	return true
}
