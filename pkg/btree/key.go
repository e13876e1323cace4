// Package btree implements a persistent, unique B+Tree index over one or
// more columns of a heap relation (spec §3, §4.5).
package btree

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"coredb/pkg/errs"
	"coredb/pkg/heap"
)

var bin = binary.LittleEndian

// Key is a lexicographic tuple of encoded column values. Comparison is
// column-by-column, byte-lexicographic within each column, matching the
// spec's "lexicographic tuples of typed column values".
type Key [][]byte

// encodeComponent renders one column's value into its comparison-order
// byte encoding (spec §4.5 "Key encoding").
func encodeComponent(v heap.Value) ([]byte, error) {
	switch v.Kind {
	case heap.AttrInt:
		// Big-endian with the sign bit flipped so unsigned byte order
		// matches signed integer order.
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v.I)^0x80000000)
		return b, nil
	case heap.AttrText:
		return []byte(v.S), nil
	default:
		return nil, errors.Wrapf(errs.ErrRelation, "unsupported key column type %v", v.Kind)
	}
}

// BuildKey projects row onto the ordered key columns and encodes each
// component.
func BuildKey(row heap.Row, columns []string) (Key, error) {
	key := make(Key, len(columns))
	for i, name := range columns {
		v, ok := row.Get(name)
		if !ok {
			return nil, errors.Wrapf(errs.ErrExec, "key column %q missing from row", name)
		}
		enc, err := encodeComponent(v)
		if err != nil {
			return nil, err
		}
		key[i] = enc
	}
	return key, nil
}

// Compare compares two keys column-by-column. Within a column, a shorter
// byte string that is a true prefix of the other compares less, per
// spec's TEXT ordering rule.
func Compare(a, b Key) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := bytes.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func marshalKey(k Key) []byte {
	buf := make([]byte, 0, 4*len(k)+8)
	for _, comp := range k {
		tmp := make([]byte, 2)
		bin.PutUint16(tmp, uint16(len(comp)))
		buf = append(buf, tmp...)
		buf = append(buf, comp...)
	}
	return buf
}

func unmarshalKey(data []byte, ncols int) (Key, int) {
	key := make(Key, ncols)
	off := 0
	for i := 0; i < ncols; i++ {
		n := int(bin.Uint16(data[off : off+2]))
		off += 2
		key[i] = append([]byte{}, data[off:off+n]...)
		off += n
	}
	return key, off
}

func keySize(k Key) int {
	sz := 0
	for _, comp := range k {
		sz += 2 + len(comp)
	}
	return sz
}
