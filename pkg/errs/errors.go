// Package errs defines the sentinel error kinds shared across coredb's
// storage, catalog, index and executor layers (spec §7).
package errs

import "errors"

var (
	// ErrNoRoom is returned by SlottedPage.Add when a record does not fit
	// in the remaining free space of the page. HeapRelation.Insert
	// recovers from it locally by allocating a new page; if a single
	// row can never fit in any page it is lifted to ErrTooLarge.
	ErrNoRoom = errors.New("not enough room in block")

	// ErrTooLarge means a single marshalled row exceeds BLOCK_SZ, or does
	// not fit even in an empty page, and can never be stored, regardless
	// of page occupancy.
	ErrTooLarge = errors.New("row too large to fit in a single block")

	// ErrTombstone is returned by SlottedPage.Get for a deleted slot.
	ErrTombstone = errors.New("record has been deleted")

	// ErrRelation covers schema/catalog violations: duplicate table,
	// duplicate column, missing table, duplicate index, unsupported
	// column type, duplicate key on a unique index.
	ErrRelation = errors.New("relation error")

	// ErrExec covers statement-level failures: unsupported statement,
	// unsupported predicate, unsupported literal kind, unknown column.
	ErrExec = errors.New("execution error")

	// ErrNotImplemented marks an interface operation that exists but has
	// no backing implementation (UPDATE, B+Tree delete/range, DOUBLE
	// columns).
	ErrNotImplemented = errors.New("not implemented")

	// ErrStore covers the underlying key/value store: I/O failure,
	// truncated file, corrupt header.
	ErrStore = errors.New("store error")

	// ErrCatalogProtected is returned when a statement attempts to
	// modify one of the three catalog relations directly.
	ErrCatalogProtected = errors.New("cannot modify catalog relation directly")

	// ErrDuplicateIndexKey is returned by a unique BTreeIndex when an
	// insert would create a duplicate key.
	ErrDuplicateIndexKey = errors.New("duplicate key on unique index")
)
