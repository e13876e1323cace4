// Package astadapter is the thin, explicitly out-of-scope boundary
// between a SQL parser and the engine: spec §1 assumes "a syntax tree is
// delivered to the engine". These are the minimal typed statements the
// executor accepts. Parse (parse.go) turns one line of text into one of
// them by pattern matching a fixed set of statement shapes; it is not a
// SQL grammar.
package astadapter

import "coredb/pkg/heap"

// ColumnDef names one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Attr heap.ColumnAttribute
}

// CreateTable is "CREATE TABLE t(cols...)".
type CreateTable struct {
	Table   string
	Columns []ColumnDef
}

// CreateIndex is "CREATE INDEX ix ON t(cols...)". Columns are in
// seq_in_index order.
type CreateIndex struct {
	Table   string
	Index   string
	Columns []string
}

// DropTable is "DROP TABLE t".
type DropTable struct {
	Table string
}

// DropIndex is "DROP INDEX ix FROM t".
type DropIndex struct {
	Table string
	Index string
}

// ShowTables is "SHOW TABLES".
type ShowTables struct{}

// ShowColumns is "SHOW COLUMNS FROM t".
type ShowColumns struct {
	Table string
}

// ShowIndex is "SHOW INDEX FROM t".
type ShowIndex struct {
	Table string
}

// Insert is "INSERT INTO t(cols?) VALUES(vals)". Columns is nil when the
// statement omitted the column list, meaning "all table columns in
// declared order".
type Insert struct {
	Table   string
	Columns []string
	Values  []heap.Value
}

// Delete is "DELETE FROM t [WHERE ...]". Where is nil for an unqualified
// DELETE FROM t.
type Delete struct {
	Table string
	Where map[string]heap.Value
}

// Select is "SELECT cols FROM t [WHERE ...]". Columns is nil (or
// contains a single "*") for "SELECT * FROM t".
type Select struct {
	Table   string
	Columns []string
	Where   map[string]heap.Value
}

// IsStar reports whether Columns means "every column", per spec §4.6
// "`*` expands to all table columns in declared order".
func (s Select) IsStar() bool {
	return len(s.Columns) == 0 || (len(s.Columns) == 1 && s.Columns[0] == "*")
}
