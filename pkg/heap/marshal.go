package heap

import (
	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/errs"
)

// Marshal serializes row according to the relation's declared column
// order: INT as 4 little-endian bytes, TEXT as a u16 length prefix
// followed by raw bytes, BOOLEAN as a single 0/1 byte (spec §4.3).
func (r *Relation) Marshal(row Row) ([]byte, error) {
	buf := make([]byte, 0, 32)

	for i, name := range r.ColumnNames {
		v, ok := row.Get(name)
		if !ok {
			return nil, errors.Wrapf(errs.ErrRelation, "row missing column %q", name)
		}

		switch r.ColumnAttrs[i] {
		case AttrInt:
			tmp := make([]byte, 4)
			bin.PutUint32(tmp, uint32(v.I))
			buf = append(buf, tmp...)
		case AttrText:
			tmp := make([]byte, 2)
			bin.PutUint16(tmp, uint16(len(v.S)))
			buf = append(buf, tmp...)
			buf = append(buf, v.S...)
		case AttrBoolean:
			if v.B {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		default:
			return nil, errors.Wrapf(errs.ErrRelation, "unsupported column type %v", r.ColumnAttrs[i])
		}
	}

	if len(buf) > block.BlockSz {
		return nil, errs.ErrTooLarge
	}

	return buf, nil
}

// Unmarshal is the inverse of Marshal, consuming columns in declared
// order.
func (r *Relation) Unmarshal(data []byte) (Row, error) {
	row := Row{values: map[string]Value{}}
	off := 0

	for i, name := range r.ColumnNames {
		switch r.ColumnAttrs[i] {
		case AttrInt:
			if off+4 > len(data) {
				return Row{}, errors.Wrap(errs.ErrStore, "truncated row: INT column")
			}
			row.Set(name, IntValue(int32(bin.Uint32(data[off:off+4]))))
			off += 4
		case AttrText:
			if off+2 > len(data) {
				return Row{}, errors.Wrap(errs.ErrStore, "truncated row: TEXT length")
			}
			n := int(bin.Uint16(data[off : off+2]))
			off += 2
			if off+n > len(data) {
				return Row{}, errors.Wrap(errs.ErrStore, "truncated row: TEXT body")
			}
			row.Set(name, TextValue(string(data[off:off+n])))
			off += n
		case AttrBoolean:
			if off+1 > len(data) {
				return Row{}, errors.Wrap(errs.ErrStore, "truncated row: BOOLEAN column")
			}
			row.Set(name, BoolValue(data[off] != 0))
			off++
		default:
			return Row{}, errors.Wrapf(errs.ErrRelation, "unsupported column type %v", r.ColumnAttrs[i])
		}
	}

	return row, nil
}
