// Package heap implements append-oriented heap files and row-level
// relations on top of slotted pages (spec §2, §4.2, §4.3).
package heap

import "fmt"

// ColumnAttribute is the declared kind of a column (spec §3).
type ColumnAttribute int

const (
	AttrInt ColumnAttribute = iota
	AttrText
	AttrBoolean
	// AttrDouble is reserved and unsupported; any attempt to create a
	// column of this kind fails with errs.ErrNotImplemented.
	AttrDouble
)

func (a ColumnAttribute) String() string {
	switch a {
	case AttrInt:
		return "INT"
	case AttrText:
		return "TEXT"
	case AttrBoolean:
		return "BOOLEAN"
	case AttrDouble:
		return "DOUBLE"
	default:
		return fmt.Sprintf("ColumnAttribute(%d)", int(a))
	}
}

// ParseAttribute maps a catalog data_type string ("INT"/"TEXT") back to
// a ColumnAttribute. Used when reconstructing a HeapRelation's schema
// from _columns rows.
func ParseAttribute(s string) (ColumnAttribute, bool) {
	switch s {
	case "INT":
		return AttrInt, true
	case "TEXT":
		return AttrText, true
	case "BOOLEAN":
		return AttrBoolean, true
	case "DOUBLE":
		return AttrDouble, true
	default:
		return 0, false
	}
}

// Value is a tagged union of the three supported scalar kinds.
type Value struct {
	Kind ColumnAttribute
	I    int32
	S    string
	B    bool
}

// IntValue constructs an Int value.
func IntValue(i int32) Value { return Value{Kind: AttrInt, I: i} }

// TextValue constructs a Text value.
func TextValue(s string) Value { return Value{Kind: AttrText, S: s} }

// BoolValue constructs a Bool value.
func BoolValue(b bool) Value { return Value{Kind: AttrBoolean, B: b} }

// Equal compares two values for equality, first on kind then on payload.
// Used by the equality-conjunction WHERE filter (spec §4.6).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case AttrInt:
		return v.I == other.I
	case AttrText:
		return v.S == other.S
	case AttrBoolean:
		return v.B == other.B
	default:
		return false
	}
}

// String renders a value the way the shell prints it (spec §4.7): INT
// unquoted, TEXT double-quoted, BOOLEAN as literal true/false.
func (v Value) String() string {
	switch v.Kind {
	case AttrInt:
		return fmt.Sprintf("%d", v.I)
	case AttrText:
		return fmt.Sprintf("%q", v.S)
	case AttrBoolean:
		if v.B {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("<unsupported:%v>", v.Kind)
	}
}

// Row is an insertion-ordered mapping from column name to Value. Go maps
// are unordered, so Row carries its own key order alongside the usual
// name->value lookup, mirroring the spec's "insertion-ordered mapping".
type Row struct {
	order  []string
	values map[string]Value
}

// NewRow builds a Row from explicit (name, value) pairs, preserving the
// order given.
func NewRow(pairs ...RowPair) Row {
	r := Row{values: map[string]Value{}}
	for _, p := range pairs {
		r.Set(p.Name, p.Value)
	}
	return r
}

// RowPair is a single column/value binding used to build a Row.
type RowPair struct {
	Name  string
	Value Value
}

// Col is shorthand for constructing a RowPair.
func Col(name string, v Value) RowPair {
	return RowPair{Name: name, Value: v}
}

// Set assigns a column's value, appending to the insertion order the
// first time the column is seen.
func (r *Row) Set(name string, v Value) {
	if r.values == nil {
		r.values = map[string]Value{}
	}
	if _, ok := r.values[name]; !ok {
		r.order = append(r.order, name)
	}
	r.values[name] = v
}

// Get returns a column's value and whether it was present.
func (r Row) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Columns returns the column names in insertion order.
func (r Row) Columns() []string {
	return r.order
}

// Equal compares two rows by their (name, value) pairs, ignoring
// insertion order.
func (r Row) Equal(other Row) bool {
	if len(r.order) != len(other.order) {
		return false
	}
	for name, v := range r.values {
		ov, ok := other.values[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Handle is an opaque pair identifying a row uniquely within a relation
// for the lifetime of that relation (spec §3).
type Handle struct {
	BlockID  uint32
	RecordID uint16
}

func (h Handle) String() string {
	return fmt.Sprintf("(%d,%d)", h.BlockID, h.RecordID)
}
