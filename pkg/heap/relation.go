package heap

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/errs"
	"coredb/pkg/logging"
	"coredb/pkg/slottedpage"
)

// bin is the byte order for the little-endian INT wire format (spec §6).
var bin = binary.LittleEndian

// Relation is row-level access on top of a HeapFile: it marshals typed
// rows into bytes and back (spec §4.3).
type Relation struct {
	Name        string
	ColumnNames []string
	ColumnAttrs []ColumnAttribute

	dir string
	hf  *HeapFile
}

// newRelation builds a Relation with no backing heap file attached;
// Create, CreateIfNotExists and Open attach one.
func newRelation(dir, name string, colNames []string, colAttrs []ColumnAttribute) *Relation {
	return &Relation{
		Name:        name,
		ColumnNames: colNames,
		ColumnAttrs: colAttrs,
		dir:         dir,
	}
}

// Create creates a new relation's backing heap file.
func Create(dir, name string, colNames []string, colAttrs []ColumnAttribute) (*Relation, error) {
	for i, attr := range colAttrs {
		if attr == AttrDouble {
			return nil, errors.Wrapf(errs.ErrNotImplemented, "column %q: %v columns", colNames[i], attr)
		}
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	r := newRelation(dir, name, colNames, colAttrs)
	hf, err := CreateFile(r.path())
	if err != nil {
		return nil, err
	}
	r.hf = hf
	return r, nil
}

// CreateIfNotExists creates the relation's backing heap file if absent,
// or opens the existing one.
func CreateIfNotExists(dir, name string, colNames []string, colAttrs []ColumnAttribute) (*Relation, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	r := newRelation(dir, name, colNames, colAttrs)
	hf, err := CreateFileIfNotExists(r.path())
	if err != nil {
		return nil, err
	}
	r.hf = hf
	return r, nil
}

// Open opens an existing relation's backing heap file. colNames/colAttrs
// must be supplied by the caller (the catalog, in practice) since the
// heap file itself carries no schema.
func Open(dir, name string, colNames []string, colAttrs []ColumnAttribute) (*Relation, error) {
	r := newRelation(dir, name, colNames, colAttrs)
	hf, err := OpenFile(r.path())
	if err != nil {
		return nil, err
	}
	r.hf = hf
	return r, nil
}

func (r *Relation) path() string {
	return filepath.Join(r.dir, r.Name+".db")
}

// Close closes the backing heap file.
func (r *Relation) Close() error {
	return r.hf.Close()
}

// Drop closes and removes the backing heap file.
func (r *Relation) Drop() error {
	return r.hf.Drop()
}

// Insert validates row against the relation's schema, marshals it, and
// appends it to the heap file, allocating a new page on NoRoom.
func (r *Relation) Insert(row Row) (Handle, error) {
	if err := r.validate(row); err != nil {
		return Handle{}, err
	}

	data, err := r.Marshal(row)
	if err != nil {
		return Handle{}, err
	}

	last := r.hf.LastBlockID()
	sp, err := r.hf.Get(last)
	if err != nil {
		return Handle{}, err
	}

	rid, err := sp.Add(data)
	if errors.Is(err, errs.ErrNoRoom) {
		sp, err = r.hf.GetNew()
		if err != nil {
			return Handle{}, err
		}
		rid, err = sp.Add(data)
		if errors.Is(err, errs.ErrNoRoom) {
			err = errors.Wrapf(errs.ErrTooLarge, "row of %d bytes does not fit in an empty page", len(data))
		}
	}
	if err != nil {
		return Handle{}, err
	}

	if err := r.hf.Put(sp); err != nil {
		return Handle{}, err
	}

	h := Handle{BlockID: uint32(sp.ID()), RecordID: uint16(rid)}
	logging.L.WithField("relation", r.Name).WithField("handle", h).Debug("heap relation: inserted row")
	return h, nil
}

// Update is reserved; the spec carries it as an unimplemented operation
// (spec §4.2, §7 NotImplemented).
func (r *Relation) Update(h Handle, newValues Row) error {
	return errors.Wrap(errs.ErrNotImplemented, "HeapRelation.Update")
}

// Del loads the page addressed by h, deletes the record, and writes the
// page back.
func (r *Relation) Del(h Handle) error {
	sp, err := r.hf.Get(blockID(h))
	if err != nil {
		return err
	}
	if err := sp.Del(slottedpage.RecordID(h.RecordID)); err != nil {
		return err
	}
	return r.hf.Put(sp)
}

// Select scans all blocks and returns the handles of every non-tombstone
// slot.
func (r *Relation) Select() ([]Handle, error) {
	return r.SelectWhere(nil)
}

// SelectWhere scans all blocks and returns the handles of rows matching
// the equality-conjunction predicate (nil predicate matches everything).
func (r *Relation) SelectWhere(where map[string]Value) ([]Handle, error) {
	var out []Handle

	for _, id := range r.hf.BlockIDs() {
		sp, err := r.hf.Get(id)
		if err != nil {
			return nil, err
		}

		for _, rid := range sp.Ids() {
			data, err := sp.Get(rid)
			if err != nil {
				return nil, err
			}

			if where != nil {
				row, err := r.Unmarshal(data)
				if err != nil {
					return nil, err
				}
				if !matches(row, where) {
					continue
				}
			}

			out = append(out, Handle{BlockID: uint32(id), RecordID: uint16(rid)})
		}
	}

	return out, nil
}

// Project loads and unmarshals the row addressed by h.
func (r *Relation) Project(h Handle) (Row, error) {
	sp, err := r.hf.Get(blockID(h))
	if err != nil {
		return Row{}, err
	}

	data, err := sp.Get(slottedpage.RecordID(h.RecordID))
	if err != nil {
		return Row{}, err
	}

	return r.Unmarshal(data)
}

// ProjectColumns loads the row at h and restricts it to names.
func (r *Relation) ProjectColumns(h Handle, names []string) (Row, error) {
	row, err := r.Project(h)
	if err != nil {
		return Row{}, err
	}

	out := Row{values: map[string]Value{}}
	for _, n := range names {
		v, ok := row.Get(n)
		if !ok {
			return Row{}, errors.Wrapf(errs.ErrExec, "unknown column %q", n)
		}
		out.Set(n, v)
	}
	return out, nil
}

func matches(row Row, where map[string]Value) bool {
	for name, want := range where {
		got, ok := row.Get(name)
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

func blockID(h Handle) block.ID { return block.ID(h.BlockID) }

func (r *Relation) validate(row Row) error {
	if len(row.Columns()) != len(r.ColumnNames) {
		return errors.Wrapf(errs.ErrRelation, "row has %d columns, relation %q has %d", len(row.Columns()), r.Name, len(r.ColumnNames))
	}
	for i, name := range r.ColumnNames {
		v, ok := row.Get(name)
		if !ok {
			return errors.Wrapf(errs.ErrRelation, "row missing column %q", name)
		}
		if v.Kind != r.ColumnAttrs[i] {
			return errors.Wrapf(errs.ErrRelation, "column %q: expected %v, got %v", name, r.ColumnAttrs[i], v.Kind)
		}
	}
	return nil
}

// ensure the data directory exists before creating any relation.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
