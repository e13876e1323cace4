package astadapter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"coredb/pkg/errs"
	"coredb/pkg/heap"
)

// Parse recognizes the handful of statement shapes the shell accepts.
// It is deliberately not a SQL parser: a real syntax tree is assumed to
// be delivered to the engine (spec §1), and this is just enough pattern
// matching to drive that engine from a terminal.
func Parse(line string) (interface{}, error) {
	line = strings.TrimSpace(line)
	upper := strings.ToUpper(line)

	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return parseCreateTable(line)
	case strings.HasPrefix(upper, "CREATE INDEX"):
		return parseCreateIndex(line)
	case strings.HasPrefix(upper, "DROP TABLE"):
		return parseDropTable(line)
	case strings.HasPrefix(upper, "DROP INDEX"):
		return parseDropIndex(line)
	case upper == "SHOW TABLES":
		return &ShowTables{}, nil
	case strings.HasPrefix(upper, "SHOW COLUMNS FROM"):
		return &ShowColumns{Table: strings.TrimSpace(line[len("SHOW COLUMNS FROM"):])}, nil
	case strings.HasPrefix(upper, "SHOW INDEX FROM"):
		return &ShowIndex{Table: strings.TrimSpace(line[len("SHOW INDEX FROM"):])}, nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		return parseInsert(line)
	case strings.HasPrefix(upper, "DELETE FROM"):
		return parseDelete(line)
	case strings.HasPrefix(upper, "SELECT"):
		return parseSelect(line)
	default:
		return nil, errors.Wrapf(errs.ErrExec, "unrecognized statement %q", line)
	}
}

var createTableRe = regexp.MustCompile(`(?i)^CREATE TABLE\s+(\w+)\s*\((.*)\)\s*;?\s*$`)

func parseCreateTable(line string) (*CreateTable, error) {
	m := createTableRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Wrapf(errs.ErrExec, "malformed CREATE TABLE: %q", line)
	}

	var cols []ColumnDef
	for _, part := range splitTopLevel(m[2]) {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return nil, errors.Wrapf(errs.ErrExec, "malformed column definition %q", part)
		}
		attr, ok := heap.ParseAttribute(strings.ToUpper(fields[1]))
		if !ok {
			return nil, errors.Wrapf(errs.ErrExec, "unsupported column type %q", fields[1])
		}
		cols = append(cols, ColumnDef{Name: fields[0], Attr: attr})
	}

	return &CreateTable{Table: m[1], Columns: cols}, nil
}

var createIndexRe = regexp.MustCompile(`(?i)^CREATE INDEX\s+(\w+)\s+ON\s+(\w+)\s*\((.*)\)\s*;?\s*$`)

func parseCreateIndex(line string) (*CreateIndex, error) {
	m := createIndexRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Wrapf(errs.ErrExec, "malformed CREATE INDEX: %q", line)
	}
	cols := splitTopLevel(m[3])
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return &CreateIndex{Table: m[2], Index: m[1], Columns: cols}, nil
}

func parseDropTable(line string) (*DropTable, error) {
	rest := strings.TrimSpace(line[len("DROP TABLE"):])
	rest = strings.TrimSuffix(rest, ";")
	if rest == "" {
		return nil, errors.Wrapf(errs.ErrExec, "malformed DROP TABLE: %q", line)
	}
	return &DropTable{Table: strings.TrimSpace(rest)}, nil
}

var dropIndexRe = regexp.MustCompile(`(?i)^DROP INDEX\s+(\w+)\s+FROM\s+(\w+)\s*;?\s*$`)

func parseDropIndex(line string) (*DropIndex, error) {
	m := dropIndexRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Wrapf(errs.ErrExec, "malformed DROP INDEX: %q", line)
	}
	return &DropIndex{Table: m[2], Index: m[1]}, nil
}

var insertRe = regexp.MustCompile(`(?is)^INSERT INTO\s+(\w+)\s*(\([^)]*\))?\s*VALUES\s*\((.*)\)\s*;?\s*$`)

func parseInsert(line string) (*Insert, error) {
	m := insertRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Wrapf(errs.ErrExec, "malformed INSERT: %q", line)
	}

	var cols []string
	if m[2] != "" {
		inner := strings.TrimSuffix(strings.TrimPrefix(m[2], "("), ")")
		for _, c := range splitTopLevel(inner) {
			cols = append(cols, strings.TrimSpace(c))
		}
	}

	var values []heap.Value
	for _, lit := range splitTopLevel(m[3]) {
		v, err := parseLiteral(lit)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return &Insert{Table: m[1], Columns: cols, Values: values}, nil
}

var deleteRe = regexp.MustCompile(`(?is)^DELETE FROM\s+(\w+)\s*(?:WHERE\s+(.*))?;?\s*$`)

func parseDelete(line string) (*Delete, error) {
	m := deleteRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Wrapf(errs.ErrExec, "malformed DELETE: %q", line)
	}
	where, err := parseWhere(m[2])
	if err != nil {
		return nil, err
	}
	return &Delete{Table: m[1], Where: where}, nil
}

var selectRe = regexp.MustCompile(`(?is)^SELECT\s+(.*?)\s+FROM\s+(\w+)\s*(?:WHERE\s+(.*))?;?\s*$`)

func parseSelect(line string) (*Select, error) {
	m := selectRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Wrapf(errs.ErrExec, "malformed SELECT: %q", line)
	}

	var cols []string
	projection := strings.TrimSpace(m[1])
	if projection != "*" {
		for _, c := range strings.Split(projection, ",") {
			cols = append(cols, strings.TrimSpace(c))
		}
	}

	where, err := parseWhere(m[3])
	if err != nil {
		return nil, err
	}
	return &Select{Table: m[2], Columns: cols, Where: where}, nil
}

func parseWhere(clause string) (map[string]heap.Value, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil, nil
	}

	where := map[string]heap.Value{}
	parts := splitAnd(clause)
	for _, part := range parts {
		eq := strings.Index(part, "=")
		if eq < 0 {
			return nil, errors.Wrapf(errs.ErrExec, "malformed WHERE clause %q", clause)
		}
		col := strings.TrimSpace(part[:eq])
		v, err := parseLiteral(strings.TrimSpace(part[eq+1:]))
		if err != nil {
			return nil, err
		}
		where[col] = v
	}
	return where, nil
}

func splitAnd(clause string) []string {
	re := regexp.MustCompile(`(?i)\s+AND\s+`)
	return re.Split(clause, -1)
}

func parseLiteral(lit string) (heap.Value, error) {
	lit = strings.TrimSpace(lit)
	if len(lit) >= 2 && (lit[0] == '\'' || lit[0] == '"') && lit[len(lit)-1] == lit[0] {
		return heap.TextValue(lit[1 : len(lit)-1]), nil
	}
	if n, err := strconv.ParseInt(lit, 10, 32); err == nil {
		return heap.IntValue(int32(n)), nil
	}
	return heap.Value{}, errors.Wrapf(errs.ErrExec, "unsupported literal %q", lit)
}

// splitTopLevel splits a comma-separated list, ignoring commas inside
// single-quoted string literals.
func splitTopLevel(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, strings.TrimSpace(cur.String()))
	}
	return out
}
