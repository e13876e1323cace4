package btree

import (
	"fmt"

	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/errs"
	"coredb/pkg/heap"
	"coredb/pkg/logging"
	"coredb/pkg/pager"
)

// FileName returns the backing file name for an index on table/index:
// "<table>-<index>.db".
func FileName(table, index string) string {
	return fmt.Sprintf("%s-%s.db", table, index)
}

// BTreeIndex is a unique B+Tree over one or more columns of a heap
// relation (spec §3, §4.5).
type BTreeIndex struct {
	Table   string
	Index   string
	Columns []string

	path     string
	relation *heap.Relation
	pf       *pager.PagedFile
	st       *stat
	closed   bool
}

// Create creates the index's backing file, writes a fresh stat block
// with an empty leaf root, and inserts every existing row of relation.
func Create(path, table, index string, columns []string, profile []heap.ColumnAttribute, relation *heap.Relation) (*BTreeIndex, error) {
	pf, err := pager.Create(path)
	if err != nil {
		return nil, err
	}

	rootID, err := pf.Alloc()
	if err != nil {
		return nil, err
	}

	bt := &BTreeIndex{
		Table:    table,
		Index:    index,
		Columns:  columns,
		path:     path,
		relation: relation,
		pf:       pf,
		st:       &stat{rootID: rootID, height: 1, keyProfile: profile},
	}

	if err := bt.writeStat(); err != nil {
		return nil, err
	}
	if err := bt.writeNode(newLeaf(rootID)); err != nil {
		return nil, err
	}

	handles, err := relation.Select()
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if err := bt.Insert(h); err != nil {
			return nil, errors.Wrapf(err, "btree: initial scan insert of %v", h)
		}
	}

	logging.L.WithField("index", index).WithField("table", table).Info("btree: created")
	return bt, nil
}

// Open attaches to an existing index file.
func Open(path, table, index string, columns []string, relation *heap.Relation) (*BTreeIndex, error) {
	pf, err := pager.Open(path)
	if err != nil {
		return nil, err
	}

	b, err := pf.Get(statBlockID)
	if err != nil {
		return nil, err
	}

	return &BTreeIndex{
		Table:    table,
		Index:    index,
		Columns:  columns,
		path:     path,
		relation: relation,
		pf:       pf,
		st:       unmarshalStat(b),
	}, nil
}

// Close detaches from the backing file without removing it.
func (bt *BTreeIndex) Close() error {
	if bt.closed {
		return nil
	}
	bt.closed = true
	return bt.pf.Close()
}

// Drop removes the backing file.
func (bt *BTreeIndex) Drop() error {
	bt.closed = true
	return bt.pf.Drop()
}

func (bt *BTreeIndex) writeStat() error {
	return bt.pf.Put(bt.st.marshal())
}

func (bt *BTreeIndex) writeNode(n *node) error {
	return bt.pf.Put(n.marshal())
}

func (bt *BTreeIndex) readNode(id block.ID) (*node, error) {
	b, err := bt.pf.Get(id)
	if err != nil {
		return nil, err
	}
	return unmarshalNode(b, len(bt.st.keyProfile)), nil
}

// Lookup projects row onto the key columns and returns the handle of the
// matching base-table row, or an empty slice on miss (unique index: at
// most one match).
func (bt *BTreeIndex) Lookup(row heap.Row) ([]heap.Handle, error) {
	key, err := BuildKey(row, bt.Columns)
	if err != nil {
		return nil, err
	}
	return bt.lookupKey(key)
}

func (bt *BTreeIndex) lookupKey(key Key) ([]heap.Handle, error) {
	id := bt.st.rootID
	height := bt.st.height

	for height > 1 {
		n, err := bt.readNode(id)
		if err != nil {
			return nil, err
		}
		id = n.findChild(key)
		height--
	}

	leaf, err := bt.readNode(id)
	if err != nil {
		return nil, err
	}

	idx := leaf.searchLeaf(key)
	if idx < 0 {
		return nil, nil
	}
	return []heap.Handle{leaf.entries[idx].handle}, nil
}

// Range is not implemented; the spec scopes the B+Tree to lookup-only
// access (spec §1 Non-goals, §4.5).
func (bt *BTreeIndex) Range(min, max heap.Row) ([]heap.Handle, error) {
	return nil, errors.Wrap(errs.ErrNotImplemented, "BTreeIndex.Range")
}

// Del is not implemented (spec §4.5, §9 Open Questions).
func (bt *BTreeIndex) Del(h heap.Handle) error {
	return errors.Wrap(errs.ErrNotImplemented, "BTreeIndex.Del")
}

// splitResult is the value a recursive insert propagates upward when a
// node overflows (spec §9 Design Notes: "Insertion | Split").
type splitResult struct {
	key     Key
	childID block.ID
}

// Insert projects the row at handle onto the key columns and inserts the
// (key, handle) pair into the tree, splitting and propagating as needed.
func (bt *BTreeIndex) Insert(h heap.Handle) error {
	row, err := bt.relation.Project(h)
	if err != nil {
		return err
	}

	key, err := BuildKey(row, bt.Columns)
	if err != nil {
		return err
	}

	split, err := bt.insert(bt.st.rootID, bt.st.height, key, h)
	if err != nil {
		return err
	}
	if split == nil {
		return nil
	}

	newRootID, err := bt.pf.Alloc()
	if err != nil {
		return err
	}
	newRoot := newInterior(newRootID, bt.st.rootID)
	newRoot.insertInterior(split.key, split.childID)
	if err := bt.writeNode(newRoot); err != nil {
		return err
	}

	bt.st.rootID = newRootID
	bt.st.height++
	if err := bt.writeStat(); err != nil {
		return err
	}

	logging.L.WithField("index", bt.Index).Debug("btree: root split, height now " + fmt.Sprint(bt.st.height))
	return nil
}

func (bt *BTreeIndex) insert(id block.ID, height uint32, key Key, h heap.Handle) (*splitResult, error) {
	n, err := bt.readNode(id)
	if err != nil {
		return nil, err
	}

	if height == 1 {
		if err := n.insertSorted(leafEntry{key: key, handle: h}); err != nil {
			return nil, err
		}
		if n.size() <= block.BlockSz {
			return nil, bt.writeNode(n)
		}

		newID, err := bt.pf.Alloc()
		if err != nil {
			return nil, err
		}
		right, splitKey := n.splitLeaf(newID)
		if err := bt.writeNode(n); err != nil {
			return nil, err
		}
		if err := bt.writeNode(right); err != nil {
			return nil, err
		}
		return &splitResult{key: splitKey, childID: newID}, nil
	}

	childID := n.findChild(key)
	childSplit, err := bt.insert(childID, height-1, key, h)
	if err != nil {
		return nil, err
	}
	if childSplit == nil {
		return nil, nil
	}

	n.insertInterior(childSplit.key, childSplit.childID)
	if n.size() <= block.BlockSz {
		return nil, bt.writeNode(n)
	}

	newID, err := bt.pf.Alloc()
	if err != nil {
		return nil, err
	}
	right, promoted := n.splitInterior(newID)
	if err := bt.writeNode(n); err != nil {
		return nil, err
	}
	if err := bt.writeNode(right); err != nil {
		return nil, err
	}
	return &splitResult{key: promoted, childID: newID}, nil
}
