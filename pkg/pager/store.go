package pager

import (
	"os"

	"github.com/pkg/errors"

	"coredb/pkg/block"
	"coredb/pkg/errs"
)

// store is the "external key/value byte store" spec §2 describes: a
// record-number file with a fixed record length of block.BlockSz. Record
// n lives at byte offset (n-1)*BlockSz, mirroring a Berkeley DB DB_RECNO
// file (see original_source/sql5300.cpp) without depending on cgo.
type store struct {
	path   string
	f      *os.File
	closed bool
}

func createStore(path string) (*store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrStore, "create %s: %v", path, err)
	}
	return &store{path: path, f: f}, nil
}

func openStore(path string) (*store, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrStore, "open %s: %v", path, err)
	}
	return &store{path: path, f: f}, nil
}

// count returns the number of whole BlockSz records currently stored.
func (s *store) count() (uint32, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, errors.Wrap(errs.ErrStore, err.Error())
	}
	return uint32(fi.Size() / block.BlockSz), nil
}

func (s *store) readAt(id block.ID) (*block.Block, error) {
	b := block.New(id)
	off := int64(id-1) * block.BlockSz
	if _, err := s.f.ReadAt(b.Bytes[:], off); err != nil {
		return nil, errors.Wrapf(errs.ErrStore, "read block %d: %v", id, err)
	}
	return b, nil
}

func (s *store) writeAt(b *block.Block) error {
	off := int64(b.ID-1) * block.BlockSz
	if _, err := s.f.WriteAt(b.Bytes[:], off); err != nil {
		return errors.Wrapf(errs.ErrStore, "write block %d: %v", b.ID, err)
	}
	return nil
}

func (s *store) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Wrap(s.f.Close(), "close store")
}

func (s *store) drop() error {
	_ = s.close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errs.ErrStore, err.Error())
	}
	return nil
}
