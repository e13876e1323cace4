package btree

import (
	"coredb/pkg/block"
	"coredb/pkg/heap"
)

// statBlockID is the fixed block holding the tree's root pointer,
// height, and key profile (spec §3 "Block 1 holds the stat block").
const statBlockID block.ID = 1

type stat struct {
	rootID     block.ID
	height     uint32
	keyProfile []heap.ColumnAttribute
}

func (s *stat) marshal() *block.Block {
	b := block.New(statBlockID)
	off := 0
	bin.PutUint32(b.Bytes[off:off+4], uint32(s.rootID))
	off += 4
	bin.PutUint32(b.Bytes[off:off+4], s.height)
	off += 4
	b.Bytes[off] = byte(len(s.keyProfile))
	off++
	for _, attr := range s.keyProfile {
		b.Bytes[off] = byte(attr)
		off++
	}
	return b
}

func unmarshalStat(b *block.Block) *stat {
	off := 0
	rootID := block.ID(bin.Uint32(b.Bytes[off : off+4]))
	off += 4
	height := bin.Uint32(b.Bytes[off : off+4])
	off += 4
	n := int(b.Bytes[off])
	off++
	profile := make([]heap.ColumnAttribute, n)
	for i := 0; i < n; i++ {
		profile[i] = heap.ColumnAttribute(b.Bytes[off])
		off++
	}
	return &stat{rootID: rootID, height: height, keyProfile: profile}
}
