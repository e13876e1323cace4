// Package executor dispatches typed statements (pkg/astadapter) against
// the catalog, heap relations and B+Tree indices, and reports results in
// the shell's result envelope (spec §4.6, §4.7).
package executor

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"coredb/config"
	"coredb/pkg/astadapter"
	"coredb/pkg/block"
	"coredb/pkg/btree"
	"coredb/pkg/catalog"
	"coredb/pkg/errs"
	"coredb/pkg/heap"
	"coredb/pkg/logging"
	"coredb/pkg/plan"
)

// QueryResult is the executor's uniform result envelope (spec §4.7): a
// tabular result set (possibly empty) plus a human-readable message.
type QueryResult struct {
	ColumnNames      []string
	ColumnAttributes []heap.ColumnAttribute
	Rows             []heap.Row
	Message          string
}

// Engine owns the catalog and dispatches statements against it.
type Engine struct {
	cat *catalog.Catalog
}

// New opens (bootstrapping if needed) the catalog rooted at cfg.DataDir.
// cfg is constructed once by the caller (cmd/coredb) and threaded
// through here explicitly rather than read from a global.
func New(cfg *config.Config) (*Engine, error) {
	if cfg.PageSize != block.BlockSz {
		return nil, errors.Wrapf(errs.ErrExec, "unsupported page size %d, engine is fixed at %d", cfg.PageSize, block.BlockSz)
	}

	cat, err := catalog.Open(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "executor: open catalog")
	}
	return &Engine{cat: cat}, nil
}

// Close closes the catalog and everything cached on top of it.
func (e *Engine) Close() error {
	return e.cat.Close()
}

// Exec dispatches stmt to the matching handler, per spec §4.6's dispatch
// table.
func (e *Engine) Exec(stmt interface{}) (*QueryResult, error) {
	switch s := stmt.(type) {
	case *astadapter.CreateTable:
		return e.createTable(s)
	case *astadapter.CreateIndex:
		return e.createIndex(s)
	case *astadapter.DropTable:
		return e.dropTable(s)
	case *astadapter.DropIndex:
		return e.dropIndex(s)
	case *astadapter.ShowTables:
		return e.showTables()
	case *astadapter.ShowColumns:
		return e.showColumns(s)
	case *astadapter.ShowIndex:
		return e.showIndex(s)
	case *astadapter.Insert:
		return e.insert(s)
	case *astadapter.Delete:
		return e.delete(s)
	case *astadapter.Select:
		return e.selectStmt(s)
	default:
		return nil, errors.Wrapf(errs.ErrExec, "unsupported statement %T", stmt)
	}
}

func indexSuffix(k int) string {
	if k == 0 {
		return ""
	}
	word := "indices"
	if k == 1 {
		word = "index"
	}
	return fmt.Sprintf(" and %d %s", k, word)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// createTable implements CREATE TABLE: bootstrap the _tables/_columns
// rows, then create the backing heap file, undoing on any failure.
func (e *Engine) createTable(s *astadapter.CreateTable) (*QueryResult, error) {
	if catalog.IsCatalogRelation(s.Table) {
		return nil, errors.Wrapf(errs.ErrCatalogProtected, "cannot create reserved table name %q", s.Table)
	}

	exists, err := e.cat.Tables.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(s.Table)})
	if err != nil {
		return nil, err
	}
	if len(exists) > 0 {
		return nil, errors.Wrapf(errs.ErrRelation, "table %q already exists", s.Table)
	}

	tableHandle, err := e.cat.Tables.Insert(heap.NewRow(heap.Col("table_name", heap.TextValue(s.Table))))
	if err != nil {
		return nil, errors.Wrap(err, "executor: insert _tables row")
	}

	var colHandles []heap.Handle
	undo := func() {
		for _, h := range colHandles {
			_ = e.cat.Columns.Del(h)
		}
		_ = e.cat.Tables.Del(tableHandle)
	}

	colNames := make([]string, len(s.Columns))
	colAttrs := make([]heap.ColumnAttribute, len(s.Columns))
	for i, col := range s.Columns {
		h, err := e.cat.Columns.Insert(heap.NewRow(
			heap.Col("table_name", heap.TextValue(s.Table)),
			heap.Col("column_name", heap.TextValue(col.Name)),
			heap.Col("data_type", heap.TextValue(col.Attr.String())),
		))
		if err != nil {
			undo()
			return nil, errors.Wrap(err, "executor: insert _columns row")
		}
		colHandles = append(colHandles, h)
		colNames[i] = col.Name
		colAttrs[i] = col.Attr
	}

	rel, err := heap.Create(e.cat.DataDir(), s.Table, colNames, colAttrs)
	if err != nil {
		undo()
		return nil, errors.Wrap(err, "executor: create table heap file")
	}

	e.cat.CacheTable(s.Table, rel)
	logging.L.WithField("table", s.Table).Info("executor: created table")
	return &QueryResult{Message: fmt.Sprintf("created %s", s.Table)}, nil
}

// createIndex implements CREATE INDEX: register the per-column _indices
// rows in seq_in_index order, then build the B+Tree over the existing
// rows, undoing on any failure.
func (e *Engine) createIndex(s *astadapter.CreateIndex) (*QueryResult, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}

	names, err := e.cat.GetIndexNames(s.Table)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == s.Index {
			return nil, errors.Wrapf(errs.ErrRelation, "index %q already exists on table %q", s.Index, s.Table)
		}
	}

	var handles []heap.Handle
	undo := func() {
		for _, h := range handles {
			_ = e.cat.Indices.Del(h)
		}
	}

	profile := make([]heap.ColumnAttribute, len(s.Columns))
	for i, col := range s.Columns {
		attr, ok := columnAttr(rel, col)
		if !ok {
			undo()
			return nil, errors.Wrapf(errs.ErrRelation, "no such column %q on table %q", col, s.Table)
		}
		profile[i] = attr

		h, err := e.cat.Indices.Insert(heap.NewRow(
			heap.Col("table_name", heap.TextValue(s.Table)),
			heap.Col("index_name", heap.TextValue(s.Index)),
			heap.Col("seq_in_index", heap.IntValue(int32(i+1))),
			heap.Col("column_name", heap.TextValue(col)),
			heap.Col("index_type", heap.TextValue("BTREE")),
			heap.Col("is_unique", heap.BoolValue(true)),
		))
		if err != nil {
			undo()
			return nil, errors.Wrap(err, "executor: insert _indices row")
		}
		handles = append(handles, h)
	}

	path := indexPath(e.cat.DataDir(), s.Table, s.Index)
	idx, err := btree.Create(path, s.Table, s.Index, s.Columns, profile, rel)
	if err != nil {
		undo()
		return nil, errors.Wrap(err, "executor: build btree index")
	}

	e.cat.CacheIndex(s.Table, s.Index, idx)
	logging.L.WithField("index", s.Index).WithField("table", s.Table).Info("executor: created index")
	return &QueryResult{Message: fmt.Sprintf("created index %s", s.Index)}, nil
}

// validateWhereColumns rejects a predicate that names a column the
// table doesn't have. Predicate columns are checked in map iteration
// order, so when several are unknown, which one is reported is not
// defined.
func validateWhereColumns(rel *heap.Relation, where map[string]heap.Value) error {
	for name := range where {
		if !slices.Contains(rel.ColumnNames, name) {
			return errors.Wrapf(errs.ErrExec, "no such column %q on table %q", name, rel.Name)
		}
	}
	return nil
}

// validateProjectColumns rejects a SELECT column list naming a column
// the table doesn't have, the same way validateWhereColumns guards the
// predicate.
func validateProjectColumns(rel *heap.Relation, columns []string) error {
	for _, name := range columns {
		if !slices.Contains(rel.ColumnNames, name) {
			return errors.Wrapf(errs.ErrExec, "no such column %q on table %q", name, rel.Name)
		}
	}
	return nil
}

func columnAttr(rel *heap.Relation, name string) (heap.ColumnAttribute, bool) {
	for i, n := range rel.ColumnNames {
		if n == name {
			return rel.ColumnAttrs[i], true
		}
	}
	return 0, false
}

func indexPath(dir, table, index string) string {
	return filepath.Join(dir, btree.FileName(table, index))
}

// dropTable implements DROP TABLE: drop every index on the table, then
// its schema rows, then its heap file.
func (e *Engine) dropTable(s *astadapter.DropTable) (*QueryResult, error) {
	if catalog.IsCatalogRelation(s.Table) {
		return nil, errors.Wrapf(errs.ErrCatalogProtected, "cannot drop catalog relation %q", s.Table)
	}

	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}

	names, err := e.cat.GetIndexNames(s.Table)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if _, err := e.dropIndex(&astadapter.DropIndex{Table: s.Table, Index: name}); err != nil {
			return nil, err
		}
	}

	colHandles, err := e.cat.Columns.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(s.Table)})
	if err != nil {
		return nil, err
	}
	for _, h := range colHandles {
		if err := e.cat.Columns.Del(h); err != nil {
			return nil, err
		}
	}

	if err := rel.Drop(); err != nil {
		return nil, errors.Wrap(err, "executor: drop table heap file")
	}
	e.cat.InvalidateTable(s.Table)

	tableHandles, err := e.cat.Tables.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(s.Table)})
	if err != nil {
		return nil, err
	}
	for _, h := range tableHandles {
		if err := e.cat.Tables.Del(h); err != nil {
			return nil, err
		}
	}

	logging.L.WithField("table", s.Table).Info("executor: dropped table")
	return &QueryResult{Message: fmt.Sprintf("dropped %s", s.Table)}, nil
}

// dropIndex implements DROP INDEX: remove the backing B+Tree file and its
// _indices rows.
func (e *Engine) dropIndex(s *astadapter.DropIndex) (*QueryResult, error) {
	idx, err := e.cat.GetIndex(s.Table, s.Index)
	if err != nil {
		return nil, err
	}
	if err := idx.Drop(); err != nil {
		return nil, errors.Wrap(err, "executor: drop btree index file")
	}
	e.cat.InvalidateIndex(s.Table, s.Index)

	handles, err := e.cat.Indices.SelectWhere(map[string]heap.Value{
		"table_name": heap.TextValue(s.Table),
		"index_name": heap.TextValue(s.Index),
	})
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if err := e.cat.Indices.Del(h); err != nil {
			return nil, err
		}
	}

	logging.L.WithField("index", s.Index).WithField("table", s.Table).Info("executor: dropped index")
	return &QueryResult{Message: fmt.Sprintf("dropped index %s", s.Index)}, nil
}

// showTables implements SHOW TABLES, hiding the three catalog relations.
func (e *Engine) showTables() (*QueryResult, error) {
	handles, err := e.cat.Tables.Select()
	if err != nil {
		return nil, err
	}

	var rows []heap.Row
	for _, h := range handles {
		row, err := e.cat.Tables.Project(h)
		if err != nil {
			return nil, err
		}
		name, _ := row.Get("table_name")
		if catalog.IsCatalogRelation(name.S) {
			continue
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		ColumnNames:      []string{"table_name"},
		ColumnAttributes: []heap.ColumnAttribute{heap.AttrText},
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(rows)),
	}, nil
}

// showColumns implements SHOW COLUMNS FROM t.
func (e *Engine) showColumns(s *astadapter.ShowColumns) (*QueryResult, error) {
	handles, err := e.cat.Columns.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(s.Table)})
	if err != nil {
		return nil, err
	}

	rows := make([]heap.Row, 0, len(handles))
	for _, h := range handles {
		row, err := e.cat.Columns.ProjectColumns(h, []string{"table_name", "column_name", "data_type"})
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		ColumnNames:      []string{"table_name", "column_name", "data_type"},
		ColumnAttributes: []heap.ColumnAttribute{heap.AttrText, heap.AttrText, heap.AttrText},
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(rows)),
	}, nil
}

// showIndex implements SHOW INDEX FROM t.
func (e *Engine) showIndex(s *astadapter.ShowIndex) (*QueryResult, error) {
	cols := []string{"table_name", "index_name", "seq_in_index", "column_name", "index_type", "is_unique"}
	attrs := []heap.ColumnAttribute{heap.AttrText, heap.AttrText, heap.AttrInt, heap.AttrText, heap.AttrText, heap.AttrBoolean}

	handles, err := e.cat.Indices.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(s.Table)})
	if err != nil {
		return nil, err
	}

	rows := make([]heap.Row, 0, len(handles))
	for _, h := range handles {
		row, err := e.cat.Indices.ProjectColumns(h, cols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		ColumnNames:      cols,
		ColumnAttributes: attrs,
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(rows)),
	}, nil
}

// insert implements INSERT INTO, maintaining every index on the table
// and reversing the base-table insert if an index rejects the row (a
// duplicate key on a unique index).
func (e *Engine) insert(s *astadapter.Insert) (*QueryResult, error) {
	if catalog.IsCatalogRelation(s.Table) {
		return nil, errors.Wrapf(errs.ErrCatalogProtected, "cannot insert into catalog relation %q", s.Table)
	}

	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}

	names := s.Columns
	if names == nil {
		names = rel.ColumnNames
	}
	if len(names) != len(s.Values) {
		return nil, errors.Wrapf(errs.ErrExec, "expected %d values, got %d", len(names), len(s.Values))
	}

	row := heap.Row{}
	for i, name := range names {
		v := s.Values[i]
		if v.Kind != heap.AttrInt && v.Kind != heap.AttrText {
			return nil, errors.Wrapf(errs.ErrExec, "unsupported literal kind for column %q", name)
		}
		row.Set(name, v)
	}

	h, err := rel.Insert(row)
	if err != nil {
		return nil, err
	}

	names2, err := e.cat.GetIndexNames(s.Table)
	if err != nil {
		return nil, err
	}

	var touched []*btree.BTreeIndex
	for _, name := range names2 {
		idx, err := e.cat.GetIndex(s.Table, name)
		if err != nil {
			return nil, err
		}
		if err := idx.Insert(h); err != nil {
			// BTreeIndex.Del is not implemented (spec §1 Non-goals), so this
			// reversal only ever removes the base-table row; any index that
			// accepted the insert before this one failed is left holding a
			// stale entry pointing at a handle that no longer exists.
			for _, t := range touched {
				_ = t.Del(h)
			}
			_ = rel.Del(h)
			return nil, err
		}
		touched = append(touched, idx)
	}

	return &QueryResult{Message: fmt.Sprintf("successfully inserted 1 row into %s%s", s.Table, indexSuffix(len(touched)))}, nil
}

// delete implements DELETE FROM: for each matching row it calls Del on
// every index on the table, then removes the row from the heap file.
// BTreeIndex.Del is not implemented and its ErrNotImplemented is ignored,
// so index entries for deleted rows stay in the index.
func (e *Engine) delete(s *astadapter.Delete) (*QueryResult, error) {
	if catalog.IsCatalogRelation(s.Table) {
		return nil, errors.Wrapf(errs.ErrCatalogProtected, "cannot delete from catalog relation %q", s.Table)
	}

	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	if err := validateWhereColumns(rel, s.Where); err != nil {
		return nil, err
	}

	root := plan.Node(&plan.Select{Where: s.Where, Child: &plan.TableScan{Rel: rel}})
	if s.Where == nil {
		root = &plan.TableScan{Rel: rel}
	}

	_, handles, err := plan.Pipeline(root)
	if err != nil {
		return nil, err
	}

	names, err := e.cat.GetIndexNames(s.Table)
	if err != nil {
		return nil, err
	}
	indices := make([]*btree.BTreeIndex, 0, len(names))
	for _, name := range names {
		idx, err := e.cat.GetIndex(s.Table, name)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}

	for _, h := range handles {
		for _, idx := range indices {
			if err := idx.Del(h); err != nil && !errors.Is(err, errs.ErrNotImplemented) {
				return nil, err
			}
		}
		if err := rel.Del(h); err != nil {
			return nil, err
		}
	}

	n := len(handles)
	return &QueryResult{
		Message: fmt.Sprintf("successfully deleted %d row%s from %s%s", n, plural(n), s.Table, indexSuffix(len(indices))),
	}, nil
}

// selectStmt implements SELECT, running Optimize ahead of Evaluate so a
// covering unique index replaces a full scan (spec §4.6).
func (e *Engine) selectStmt(s *astadapter.Select) (*QueryResult, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	if err := validateWhereColumns(rel, s.Where); err != nil {
		return nil, err
	}

	columns := s.Columns
	if s.IsStar() {
		columns = rel.ColumnNames
	}
	if err := validateProjectColumns(rel, columns); err != nil {
		return nil, err
	}

	var root plan.Node = &plan.TableScan{Rel: rel}
	if len(s.Where) > 0 {
		root = &plan.Select{Where: s.Where, Child: root}
	}

	root, err = plan.Optimize(root, e.cat, s.Table)
	if err != nil {
		return nil, err
	}

	rows, err := plan.Evaluate(&plan.Project{Columns: columns, Child: root})
	if err != nil {
		return nil, err
	}

	attrs := make([]heap.ColumnAttribute, len(columns))
	for i, c := range columns {
		attr, _ := columnAttr(rel, c)
		attrs[i] = attr
	}

	return &QueryResult{
		ColumnNames:      columns,
		ColumnAttributes: attrs,
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(rows)),
	}, nil
}
