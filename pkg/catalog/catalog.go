// Package catalog implements the self-describing schema relations
// _tables, _columns and _indices that every user table and index is
// bootstrapped against (spec §3, §4.4).
package catalog

import (
	"path/filepath"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"

	"coredb/pkg/btree"
	"coredb/pkg/errs"
	"coredb/pkg/heap"
	"coredb/pkg/logging"
)

// TablesName, ColumnsName and IndicesName are the reserved relation
// names hidden from user-facing SHOW TABLES / index listings.
const (
	TablesName  = "_tables"
	ColumnsName = "_columns"
	IndicesName = "_indices"
)

// IsCatalogRelation reports whether name is one of the three bootstrapped
// schema relations.
func IsCatalogRelation(name string) bool {
	return name == TablesName || name == ColumnsName || name == IndicesName
}

// Catalog owns the three bootstrapped schema relations plus a per-process
// cache of opened user relations and indices (spec §4.4, §5 "catalog
// HeapRelation handles ... are cached per process").
type Catalog struct {
	dir string

	Tables  *heap.Relation
	Columns *heap.Relation
	Indices *heap.Relation

	tableCache map[uint64]*heap.Relation
	indexCache map[uint64]*btree.BTreeIndex
}

// Open bootstraps (or re-attaches to) the catalog relations rooted at
// dir, the engine's data directory.
func Open(dir string) (*Catalog, error) {
	tables, err := heap.CreateIfNotExists(dir, TablesName,
		[]string{"table_name"},
		[]heap.ColumnAttribute{heap.AttrText})
	if err != nil {
		return nil, errors.Wrap(err, "catalog: open _tables")
	}

	columns, err := heap.CreateIfNotExists(dir, ColumnsName,
		[]string{"table_name", "column_name", "data_type"},
		[]heap.ColumnAttribute{heap.AttrText, heap.AttrText, heap.AttrText})
	if err != nil {
		return nil, errors.Wrap(err, "catalog: open _columns")
	}

	indices, err := heap.CreateIfNotExists(dir, IndicesName,
		[]string{"table_name", "index_name", "seq_in_index", "column_name", "index_type", "is_unique"},
		[]heap.ColumnAttribute{heap.AttrText, heap.AttrText, heap.AttrInt, heap.AttrText, heap.AttrText, heap.AttrBoolean})
	if err != nil {
		return nil, errors.Wrap(err, "catalog: open _indices")
	}

	c := &Catalog{
		dir:        dir,
		Tables:     tables,
		Columns:    columns,
		Indices:    indices,
		tableCache: map[uint64]*heap.Relation{},
		indexCache: map[uint64]*btree.BTreeIndex{},
	}

	if err := c.bootstrap(); err != nil {
		return nil, err
	}

	return c, nil
}

// Close closes all three catalog relations and anything cached on top of
// them.
func (c *Catalog) Close() error {
	for _, idx := range c.indexCache {
		_ = idx.Close()
	}
	for _, rel := range c.tableCache {
		_ = rel.Close()
	}
	_ = c.Tables.Close()
	_ = c.Columns.Close()
	return c.Indices.Close()
}

// cacheKey hashes a (table, name) pair into a map key, per the domain
// stack's murmur3 wiring (SPEC_FULL.md §3).
func cacheKey(table, name string) uint64 {
	h := murmur3.New64()
	_, _ = h.Write([]byte(table))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// bootstrap inserts the catalog's own self-describing rows if they are
// not already present (spec §4.4, §9 "Self-describing catalog").
func (c *Catalog) bootstrap() error {
	schemas := []struct {
		name  string
		cols  []string
		types []heap.ColumnAttribute
	}{
		{TablesName, []string{"table_name"}, []heap.ColumnAttribute{heap.AttrText}},
		{ColumnsName, []string{"table_name", "column_name", "data_type"}, []heap.ColumnAttribute{heap.AttrText, heap.AttrText, heap.AttrText}},
		{IndicesName, []string{"table_name", "index_name", "seq_in_index", "column_name", "index_type", "is_unique"},
			[]heap.ColumnAttribute{heap.AttrText, heap.AttrText, heap.AttrInt, heap.AttrText, heap.AttrText, heap.AttrBoolean}},
	}

	for _, s := range schemas {
		present, err := c.hasTableRow(s.name)
		if err != nil {
			return err
		}
		if !present {
			if _, err := c.Tables.Insert(heap.NewRow(heap.Col("table_name", heap.TextValue(s.name)))); err != nil {
				return errors.Wrapf(err, "catalog: bootstrap _tables row for %s", s.name)
			}
			logging.L.WithField("table", s.name).Debug("catalog: bootstrapped _tables row")
		}

		for _, colName := range s.cols {
			present, err := c.hasColumnRow(s.name, colName)
			if err != nil {
				return err
			}
			if present {
				continue
			}
			idx := indexOf(s.cols, colName)
			if _, err := c.Columns.Insert(heap.NewRow(
				heap.Col("table_name", heap.TextValue(s.name)),
				heap.Col("column_name", heap.TextValue(colName)),
				heap.Col("data_type", heap.TextValue(s.types[idx].String())),
			)); err != nil {
				return errors.Wrapf(err, "catalog: bootstrap _columns row for %s.%s", s.name, colName)
			}
			logging.L.WithField("table", s.name).WithField("column", colName).Debug("catalog: bootstrapped _columns row")
		}
	}

	return nil
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}

func (c *Catalog) hasTableRow(name string) (bool, error) {
	handles, err := c.Tables.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(name)})
	if err != nil {
		return false, err
	}
	return len(handles) > 0, nil
}

func (c *Catalog) hasColumnRow(table, column string) (bool, error) {
	handles, err := c.Columns.SelectWhere(map[string]heap.Value{
		"table_name":  heap.TextValue(table),
		"column_name": heap.TextValue(column),
	})
	if err != nil {
		return false, err
	}
	return len(handles) > 0, nil
}

// GetTable returns a lazily constructed, process-cached HeapRelation for
// a user table, reading its column list and types from _columns.
func (c *Catalog) GetTable(name string) (*heap.Relation, error) {
	key := cacheKey(name, "")
	if r, ok := c.tableCache[key]; ok {
		return r, nil
	}

	colNames, colAttrs, err := c.tableSchema(name)
	if err != nil {
		return nil, err
	}
	if len(colNames) == 0 {
		return nil, errors.Wrapf(errs.ErrRelation, "no such table %q", name)
	}

	r, err := heap.Open(c.dir, name, colNames, colAttrs)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: open table %q", name)
	}

	c.tableCache[key] = r
	return r, nil
}

// InvalidateTable evicts name from the table cache, used by DROP TABLE
// after the relation's backing file has been removed.
func (c *Catalog) InvalidateTable(name string) {
	delete(c.tableCache, cacheKey(name, ""))
}

// InvalidateIndex evicts (table, index) from the index cache, used by
// DROP INDEX after the B+Tree file has been removed.
func (c *Catalog) InvalidateIndex(table, index string) {
	delete(c.indexCache, cacheKey(table, index))
}

func (c *Catalog) tableSchema(name string) ([]string, []heap.ColumnAttribute, error) {
	handles, err := c.Columns.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(name)})
	if err != nil {
		return nil, nil, err
	}

	colNames := make([]string, 0, len(handles))
	colAttrs := make([]heap.ColumnAttribute, 0, len(handles))
	for _, h := range handles {
		row, err := c.Columns.Project(h)
		if err != nil {
			return nil, nil, err
		}
		cname, _ := row.Get("column_name")
		dtype, _ := row.Get("data_type")
		attr, ok := heap.ParseAttribute(dtype.S)
		if !ok {
			return nil, nil, errors.Wrapf(errs.ErrRelation, "unknown data_type %q for %s.%s", dtype.S, name, cname.S)
		}
		colNames = append(colNames, cname.S)
		colAttrs = append(colAttrs, attr)
	}

	return colNames, colAttrs, nil
}

// GetIndexNames returns the distinct index names defined on table, using
// a set to collapse the per-column _indices rows (spec §4.4).
func (c *Catalog) GetIndexNames(table string) ([]string, error) {
	handles, err := c.Indices.SelectWhere(map[string]heap.Value{"table_name": heap.TextValue(table)})
	if err != nil {
		return nil, err
	}

	names := mapset.NewThreadUnsafeSet[string]()
	for _, h := range handles {
		row, err := c.Indices.Project(h)
		if err != nil {
			return nil, err
		}
		v, _ := row.Get("index_name")
		names.Add(v.S)
	}

	out := names.ToSlice()
	sort.Strings(out)
	return out, nil
}

// GetIndex reconstructs a BTreeIndex from catalog rows, ordered by
// seq_in_index, and caches it by (table, name).
func (c *Catalog) GetIndex(table, name string) (*btree.BTreeIndex, error) {
	key := cacheKey(table, name)
	if idx, ok := c.indexCache[key]; ok {
		return idx, nil
	}

	handles, err := c.Indices.SelectWhere(map[string]heap.Value{
		"table_name": heap.TextValue(table),
		"index_name": heap.TextValue(name),
	})
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, errors.Wrapf(errs.ErrRelation, "no such index %q on table %q", name, table)
	}

	type seqCol struct {
		seq    int32
		column string
	}
	cols := make([]seqCol, 0, len(handles))
	for _, h := range handles {
		row, err := c.Indices.Project(h)
		if err != nil {
			return nil, err
		}
		seq, _ := row.Get("seq_in_index")
		col, _ := row.Get("column_name")
		cols = append(cols, seqCol{seq: seq.I, column: col.S})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].seq < cols[j].seq })

	columns := make([]string, len(cols))
	for i, sc := range cols {
		columns[i] = sc.column
	}

	rel, err := c.GetTable(table)
	if err != nil {
		return nil, err
	}

	idx, err := btree.Open(c.indexPath(table, name), table, name, columns, rel)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: open index %q on %q", name, table)
	}

	c.indexCache[key] = idx
	return idx, nil
}

func (c *Catalog) indexPath(table, name string) string {
	return filepath.Join(c.dir, btree.FileName(table, name))
}

// DataDir returns the engine's data directory, used by the executor to
// create table/index backing files outside the catalog's own bootstrap
// set.
func (c *Catalog) DataDir() string {
	return c.dir
}

// CacheIndex registers a freshly created BTreeIndex in the process cache,
// used right after CREATE INDEX.
func (c *Catalog) CacheIndex(table, name string, idx *btree.BTreeIndex) {
	c.indexCache[cacheKey(table, name)] = idx
}

// CacheTable registers a freshly created table relation in the process
// cache, used right after CREATE TABLE.
func (c *Catalog) CacheTable(name string, rel *heap.Relation) {
	c.tableCache[cacheKey(name, "")] = rel
}
