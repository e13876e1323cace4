package btree

import (
	"golang.org/x/exp/slices"

	"coredb/pkg/block"
	"coredb/pkg/errs"
	"coredb/pkg/heap"
)

const nodeHeaderSz = 1 + 2 + 4 // flag + entry count + first/next pointer

const (
	flagLeaf     uint8 = 0
	flagInterior uint8 = 1
)

// leafEntry pairs a key with the handle of the base-table row it points
// to.
type leafEntry struct {
	key    Key
	handle heap.Handle
}

// interiorEntry pairs a key with the id of the child subtree holding
// every key >= this one (and < the next entry's key, if any).
type interiorEntry struct {
	key     Key
	childID block.ID
}

// node is the in-memory form of one B+Tree page: either a leaf (holding
// handles) or an interior (holding child pointers). Design Notes (spec
// §9) prefer a tagged union over virtual dispatch for exactly this type.
type node struct {
	id   block.ID
	leaf bool

	// leaf fields
	entries []leafEntry
	next    block.ID // 0 means no next leaf

	// interior fields
	interiorEntries []interiorEntry
	first           block.ID
}

func newLeaf(id block.ID) *node {
	return &node{id: id, leaf: true}
}

func newInterior(id block.ID, first block.ID) *node {
	return &node{id: id, leaf: false, first: first}
}

// size returns the number of bytes this node would occupy when
// marshalled, used to decide whether an insert must trigger a split.
func (n *node) size() int {
	sz := nodeHeaderSz
	if n.leaf {
		for _, e := range n.entries {
			sz += keySize(e.key) + 4 + 2 // handle: u32 block + u16 record
		}
	} else {
		for _, e := range n.interiorEntries {
			sz += keySize(e.key) + 4 // child block id
		}
	}
	return sz
}

func (n *node) marshal() *block.Block {
	b := block.New(n.id)
	off := 0

	if n.leaf {
		b.Bytes[off] = flagLeaf
		off++
		bin.PutUint16(b.Bytes[off:off+2], uint16(len(n.entries)))
		off += 2
		bin.PutUint32(b.Bytes[off:off+4], uint32(n.next))
		off += 4

		for _, e := range n.entries {
			kb := marshalKey(e.key)
			copy(b.Bytes[off:], kb)
			off += len(kb)
			bin.PutUint32(b.Bytes[off:off+4], e.handle.BlockID)
			off += 4
			bin.PutUint16(b.Bytes[off:off+2], e.handle.RecordID)
			off += 2
		}
		return b
	}

	b.Bytes[off] = flagInterior
	off++
	bin.PutUint16(b.Bytes[off:off+2], uint16(len(n.interiorEntries)))
	off += 2
	bin.PutUint32(b.Bytes[off:off+4], uint32(n.first))
	off += 4

	for _, e := range n.interiorEntries {
		kb := marshalKey(e.key)
		copy(b.Bytes[off:], kb)
		off += len(kb)
		bin.PutUint32(b.Bytes[off:off+4], uint32(e.childID))
		off += 4
	}
	return b
}

func unmarshalNode(b *block.Block, ncols int) *node {
	off := 0
	flag := b.Bytes[off]
	off++
	count := int(bin.Uint16(b.Bytes[off : off+2]))
	off += 2
	ptr := bin.Uint32(b.Bytes[off : off+4])
	off += 4

	n := &node{id: b.ID}

	if flag == flagLeaf {
		n.leaf = true
		n.next = block.ID(ptr)
		n.entries = make([]leafEntry, count)
		for i := 0; i < count; i++ {
			key, consumed := unmarshalKey(b.Bytes[off:], ncols)
			off += consumed
			h := heap.Handle{
				BlockID:  bin.Uint32(b.Bytes[off : off+4]),
				RecordID: bin.Uint16(b.Bytes[off+4 : off+6]),
			}
			off += 6
			n.entries[i] = leafEntry{key: key, handle: h}
		}
		return n
	}

	n.leaf = false
	n.first = block.ID(ptr)
	n.interiorEntries = make([]interiorEntry, count)
	for i := 0; i < count; i++ {
		key, consumed := unmarshalKey(b.Bytes[off:], ncols)
		off += consumed
		childID := block.ID(bin.Uint32(b.Bytes[off : off+4]))
		off += 4
		n.interiorEntries[i] = interiorEntry{key: key, childID: childID}
	}
	return n
}

func compareLeafKey(e leafEntry, key Key) int { return Compare(e.key, key) }
func compareInteriorKey(e interiorEntry, key Key) int { return Compare(e.key, key) }

// searchLeaf returns the index of the entry with an exact key match, or
// -1 if absent. Entries are kept sorted by insertSorted, so this is a
// binary search rather than a linear scan.
func (n *node) searchLeaf(key Key) int {
	idx, found := slices.BinarySearchFunc(n.entries, key, compareLeafKey)
	if !found {
		return -1
	}
	return idx
}

// insertSorted inserts a leaf entry in ascending key order, rejecting
// duplicates (only unique indices are supported, spec §4.5).
func (n *node) insertSorted(e leafEntry) error {
	idx, found := slices.BinarySearchFunc(n.entries, e.key, compareLeafKey)
	if found {
		return errs.ErrDuplicateIndexKey
	}
	n.entries = slices.Insert(n.entries, idx, e)
	return nil
}

// findChild returns the id of the child subtree to descend into for key:
// the "first" pointer if key is less than every entry's key, otherwise
// the child of the largest entry whose key <= target.
func (n *node) findChild(key Key) block.ID {
	idx, found := slices.BinarySearchFunc(n.interiorEntries, key, compareInteriorKey)
	if found {
		return n.interiorEntries[idx].childID
	}
	if idx == 0 {
		return n.first
	}
	return n.interiorEntries[idx-1].childID
}

// insertInterior inserts a (key, childID) pair in ascending key order.
func (n *node) insertInterior(key Key, childID block.ID) {
	idx, _ := slices.BinarySearchFunc(n.interiorEntries, key, compareInteriorKey)
	n.interiorEntries = slices.Insert(n.interiorEntries, idx, interiorEntry{key: key, childID: childID})
}

// splitLeaf divides n in half, returning the new right-hand node and the
// first key of that node (the boundary key propagated to the parent).
func (n *node) splitLeaf(newID block.ID) (*node, Key) {
	mid := len(n.entries) / 2
	right := newLeaf(newID)
	right.entries = append([]leafEntry{}, n.entries[mid:]...)
	right.next = n.next

	n.entries = n.entries[:mid]
	n.next = newID

	return right, right.entries[0].key
}

// splitInterior divides n in half, returning the new right-hand node and
// the key promoted to the parent (spec §4.5, §9 Split invariant).
func (n *node) splitInterior(newID block.ID) (*node, Key) {
	mid := len(n.interiorEntries) / 2
	promoted := n.interiorEntries[mid]

	right := newInterior(newID, promoted.childID)
	right.interiorEntries = append([]interiorEntry{}, n.interiorEntries[mid+1:]...)

	n.interiorEntries = n.interiorEntries[:mid]

	return right, promoted.key
}
