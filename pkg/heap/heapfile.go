package heap

import (
	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/logging"
	"coredb/pkg/pager"
	"coredb/pkg/slottedpage"
)

// HeapFile is an ordered sequence of slotted pages indexed by 1-based
// block id, with append semantics (spec §4.2).
type HeapFile struct {
	path   string
	pf     *pager.PagedFile
	closed bool
}

// CreateFile creates the backing paged file exclusively.
func CreateFile(path string) (*HeapFile, error) {
	pf, err := pager.Create(path)
	if err != nil {
		return nil, err
	}
	return &HeapFile{path: path, pf: pf}, nil
}

// CreateFileIfNotExists creates the heap file if its backing store
// doesn't already exist, or opens it otherwise.
func CreateFileIfNotExists(path string) (*HeapFile, error) {
	hf, err := OpenFile(path)
	if err == nil {
		return hf, nil
	}
	return CreateFile(path)
}

// OpenFile opens an existing heap file.
func OpenFile(path string) (*HeapFile, error) {
	pf, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	return &HeapFile{path: path, pf: pf}, nil
}

// Close closes the backing paged file.
func (hf *HeapFile) Close() error {
	if hf.closed {
		return nil
	}
	hf.closed = true
	return hf.pf.Close()
}

// Drop closes the store and removes the underlying file.
func (hf *HeapFile) Drop() error {
	hf.closed = true
	return hf.pf.Drop()
}

// GetNew allocates a new block id, formats it as a fresh slotted page,
// and persists it immediately so the file manager owns the backing
// buffer rather than the caller.
func (hf *HeapFile) GetNew() (*slottedpage.SlottedPage, error) {
	id, err := hf.pf.Alloc()
	if err != nil {
		return nil, errors.Wrap(err, "heap file: allocate page")
	}

	sp := slottedpage.New(id)
	if err := hf.pf.Put(sp.Block()); err != nil {
		return nil, errors.Wrap(err, "heap file: persist new page")
	}

	reread, err := hf.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "heap file: reread new page")
	}

	logging.L.WithField("block", id).Debug("heap file: allocated page")
	return reread, nil
}

// Get reads the slotted page with the given block id.
func (hf *HeapFile) Get(id block.ID) (*slottedpage.SlottedPage, error) {
	b, err := hf.pf.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "heap file: read page")
	}
	return slottedpage.Open(b), nil
}

// Put writes a modified page's bytes back under its own block id.
func (hf *HeapFile) Put(sp *slottedpage.SlottedPage) error {
	return errors.Wrap(hf.pf.Put(sp.Block()), "heap file: write page")
}

// BlockIDs enumerates all allocated block ids in ascending order.
func (hf *HeapFile) BlockIDs() []block.ID {
	return hf.pf.BlockIDs()
}

// LastBlockID returns the largest allocated block id.
func (hf *HeapFile) LastBlockID() block.ID {
	return hf.pf.LastBlockID()
}
