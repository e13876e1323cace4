// Package slottedpage interprets a block.Block as a slotted page of
// variable-length records (spec §3, §4.1).
//
// Layout (all multi-byte integers are 16-bit unsigned, host-endian):
//
//	[0..2)             num_records
//	[2..4)             end_free
//	[4*i..4*i+2)       size of slot i   (i in [1..num_records])
//	[4*i+2..4*i+4)     offset of slot i
//	[end_free+1..end)  record bytes, not necessarily in slot order
//
// A slot with size=0 and offset=0 is a tombstone.
package slottedpage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/errs"
)

// bin is the byte order used for the 16-bit slot and header fields.
// Cross-process compatibility (spec §6) requires every implementation
// sharing a data directory to agree on this.
var bin = binary.LittleEndian

// RecordID is a 1-based slot id within a page. Id 0 is reserved for the
// page header.
type RecordID uint16

const headerSz = 4 // num_records (2) + end_free (2)

// SlottedPage is a block.Block interpreted as a directory of
// variable-length records.
type SlottedPage struct {
	blk        *block.Block
	numRecords uint16
	endFree    uint16
}

// New formats a fresh block as an empty slotted page.
func New(id block.ID) *SlottedPage {
	sp := &SlottedPage{
		blk:     block.New(id),
		endFree: block.BlockSz - 1,
	}
	sp.putHeader()
	return sp
}

// Open interprets an existing block as a slotted page, reading its
// header.
func Open(b *block.Block) *SlottedPage {
	sp := &SlottedPage{blk: b}
	sp.numRecords = bin.Uint16(b.Bytes[0:2])
	sp.endFree = bin.Uint16(b.Bytes[2:4])
	return sp
}

// ID returns the underlying block's id.
func (sp *SlottedPage) ID() block.ID { return sp.blk.ID }

// Block returns the underlying block, refreshed with the current header.
// The returned block is owned by the page; callers that need it to
// outlive further mutation of sp should Copy it.
func (sp *SlottedPage) Block() *block.Block {
	sp.putHeader()
	return sp.blk
}

func (sp *SlottedPage) putHeader() {
	bin.PutUint16(sp.blk.Bytes[0:2], sp.numRecords)
	bin.PutUint16(sp.blk.Bytes[2:4], sp.endFree)
}

func (sp *SlottedPage) slotOffset(id RecordID) int {
	return 4 * int(id)
}

func (sp *SlottedPage) putSlot(id RecordID, size, loc uint16) {
	off := sp.slotOffset(id)
	bin.PutUint16(sp.blk.Bytes[off:off+2], size)
	bin.PutUint16(sp.blk.Bytes[off+2:off+4], loc)
}

func (sp *SlottedPage) getSlot(id RecordID) (size, loc uint16) {
	off := sp.slotOffset(id)
	size = bin.Uint16(sp.blk.Bytes[off : off+2])
	loc = bin.Uint16(sp.blk.Bytes[off+2 : off+4])
	return
}

// freeSpace is the number of bytes between the current slot headers and
// end_free: room available for a new slot header plus its data (Add),
// or for growing an existing record in place (Put).
func (sp *SlottedPage) freeSpace() int {
	return int(sp.endFree) - headerSz*(int(sp.numRecords)+1)
}

// Add stores data in a new slot and returns its id. Fails with
// errs.ErrNoRoom if the record plus its slot header does not fit in the
// page's remaining free space.
func (sp *SlottedPage) Add(data []byte) (RecordID, error) {
	if sp.freeSpace() < len(data)+headerSz {
		return 0, errs.ErrNoRoom
	}

	sp.numRecords++
	id := RecordID(sp.numRecords)
	size := uint16(len(data))
	sp.endFree -= size
	loc := sp.endFree + 1

	sp.putHeader()
	sp.putSlot(id, size, loc)
	copy(sp.blk.Bytes[loc:int(loc)+int(size)], data)

	return id, nil
}

// Get returns the bytes stored under id, or errs.ErrTombstone if the
// slot has been deleted. The returned slice aliases the page's backing
// array and is only valid until the next mutating call on sp.
func (sp *SlottedPage) Get(id RecordID) ([]byte, error) {
	if id == 0 || id > RecordID(sp.numRecords) {
		return nil, errors.Errorf("record id %d out of range [1,%d]", id, sp.numRecords)
	}
	size, loc := sp.getSlot(id)
	if loc == 0 {
		return nil, errs.ErrTombstone
	}
	return sp.blk.Bytes[loc : int(loc)+int(size)], nil
}

// Put replaces the record stored under id with data, sliding neighboring
// records to keep the free region contiguous.
func (sp *SlottedPage) Put(id RecordID, data []byte) error {
	oldSize, oldLoc := sp.getSlot(id)
	newSize := uint16(len(data))

	if newSize <= oldSize {
		copy(sp.blk.Bytes[oldLoc:int(oldLoc)+int(newSize)], data)
		sp.slide(int32(oldLoc)+int32(newSize), int32(oldLoc)+int32(oldSize))
		_, newLoc := sp.getSlot(id)
		sp.putSlot(id, newSize, newLoc)
		return nil
	}

	extra := newSize - oldSize
	if sp.freeSpace() < int(extra) {
		return errs.ErrNoRoom
	}
	sp.slide(int32(oldLoc), int32(oldLoc)-int32(extra))
	newLoc := oldLoc - extra
	copy(sp.blk.Bytes[newLoc:int(newLoc)+int(newSize)], data)
	sp.putSlot(id, newSize, newLoc)
	return nil
}

// Del marks id as a tombstone and reclaims its space. The slot id is
// never reused (spec invariant: slot ids are stable once issued).
func (sp *SlottedPage) Del(id RecordID) error {
	size, loc := sp.getSlot(id)
	if loc == 0 {
		return nil // already a tombstone
	}
	sp.putSlot(id, 0, 0)
	sp.slide(int32(loc), int32(loc)+int32(size))
	return nil
}

// Ids returns the ids of all non-tombstone slots, in ascending order.
func (sp *SlottedPage) Ids() []RecordID {
	ids := make([]RecordID, 0, sp.numRecords)
	for i := uint16(1); i <= sp.numRecords; i++ {
		_, loc := sp.getSlot(RecordID(i))
		if loc != 0 {
			ids = append(ids, RecordID(i))
		}
	}
	return ids
}

// NumRecords returns the monotonically increasing slot count, including
// tombstones.
func (sp *SlottedPage) NumRecords() uint16 { return sp.numRecords }

// EndFree returns the offset of the last byte of free space, for tests
// asserting the compaction invariant (spec §8 property 2).
func (sp *SlottedPage) EndFree() uint16 { return sp.endFree }

// slide is the compaction primitive (spec §4.1). shift = end - start is
// signed: negative shifts move bytes (and therefore offsets) left/down,
// used by Put's grow path; positive shifts move bytes right/up, used by
// Del and Put's shrink path.
// shift = 0 is a no-op.
func (sp *SlottedPage) slide(start, end int32) {
	shift := end - start
	if shift == 0 {
		return
	}

	regionStart := int32(sp.endFree) + 1
	if shift > 0 {
		// moving right: copy from the high end down to avoid
		// clobbering source bytes before they're read.
		for i := start - 1; i >= regionStart; i-- {
			sp.blk.Bytes[i+shift] = sp.blk.Bytes[i]
		}
	} else {
		for i := regionStart; i < start; i++ {
			sp.blk.Bytes[i+shift] = sp.blk.Bytes[i]
		}
	}

	for i := uint16(1); i <= sp.numRecords; i++ {
		id := RecordID(i)
		size, loc := sp.getSlot(id)
		if loc != 0 && int32(loc) <= start {
			sp.putSlot(id, size, uint16(int32(loc)+shift))
		}
	}

	sp.endFree = uint16(int32(sp.endFree) + shift)
	sp.putHeader()
}
