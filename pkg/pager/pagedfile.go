// Package pager implements PagedFile, an ordered collection of fixed-size
// blocks keyed by 1-based block id and backed by a record-number store
// (spec §2, §4.2).
package pager

import (
	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/logging"
	"coredb/pkg/slottedpage"
)

// PagedFile is an ordered collection of block.Block values keyed by
// 1-based block.ID, backed by a record-number file on disk.
type PagedFile struct {
	path   string
	s      *store
	last   block.ID
	closed bool
}

// Create creates the backing store exclusively and allocates block 1
// formatted as an empty SlottedPage, matching the layout every later
// block gets through HeapFile.GetNew rather than leaving it raw zeroed.
func Create(path string) (*PagedFile, error) {
	s, err := createStore(path)
	if err != nil {
		return nil, err
	}

	pf := &PagedFile{path: path, s: s}
	if err := pf.s.writeAt(slottedpage.New(1).Block()); err != nil {
		_ = s.close()
		return nil, err
	}
	pf.last = 1

	logging.L.WithField("path", path).Debug("pager: created")
	return pf, nil
}

// Open opens an existing backing store and initializes `last` from the
// current record count.
func Open(path string) (*PagedFile, error) {
	s, err := openStore(path)
	if err != nil {
		return nil, err
	}

	count, err := s.count()
	if err != nil {
		_ = s.close()
		return nil, err
	}

	return &PagedFile{path: path, s: s, last: block.ID(count)}, nil
}

// Close closes the backing store.
func (pf *PagedFile) Close() error {
	if pf.closed {
		return nil
	}
	pf.closed = true
	return pf.s.close()
}

// Drop closes the store and removes the underlying file.
func (pf *PagedFile) Drop() error {
	pf.closed = true
	return pf.s.drop()
}

// Alloc allocates a new block id (`++last`) and writes a zeroed block for
// it, returning the id. Callers that need a typed page (e.g. a fresh
// SlottedPage) build it around this id and call Put to persist it.
func (pf *PagedFile) Alloc() (block.ID, error) {
	pf.last++
	b := block.New(pf.last)
	if err := pf.s.writeAt(b); err != nil {
		pf.last--
		return 0, err
	}
	return pf.last, nil
}

// Get reads the block with the given id from the store.
func (pf *PagedFile) Get(id block.ID) (*block.Block, error) {
	if id == 0 || id > pf.last {
		return nil, errors.Errorf("block id %d out of range [1,%d]", id, pf.last)
	}
	return pf.s.readAt(id)
}

// Put writes a modified block back to the store under its own id.
func (pf *PagedFile) Put(b *block.Block) error {
	return pf.s.writeAt(b)
}

// BlockIDs enumerates all allocated block ids in ascending order.
func (pf *PagedFile) BlockIDs() []block.ID {
	ids := make([]block.ID, pf.last)
	for i := range ids {
		ids[i] = block.ID(i + 1)
	}
	return ids
}

// LastBlockID returns the largest allocated block id.
func (pf *PagedFile) LastBlockID() block.ID {
	return pf.last
}
