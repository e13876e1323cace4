// Package selftest holds the engine's own smoke tests: a storage-layer
// self-check modelled on heap_storage.cpp's test_heap_storage, and a
// short end-to-end SQL suite covering the canonical CREATE/INSERT/
// SELECT/DELETE/DROP lifecycle. Both run as go test targets and are
// wired into the shell's `test`/`test2` commands.
package selftest

import (
	"fmt"

	"github.com/pkg/errors"

	"coredb/pkg/errs"
	"coredb/pkg/heap"
)

// StorageTestReport is the accumulated checkpoint trail, one line per
// stage that passed, mirroring heap_storage.cpp's stdout checkpoints.
type StorageTestReport struct {
	Lines []string
}

func (r *StorageTestReport) log(line string) {
	r.Lines = append(r.Lines, line)
}

// StorageTest exercises the heap relation directly: create, insert,
// select, project, delete, drop, in that order. It fails fast, wrapping
// errs.ErrExec with the checkpoint name that didn't hold.
func StorageTest(dir string) (*StorageTestReport, error) {
	report := &StorageTestReport{}

	rel, err := heap.Create(dir, "selftest_foo", []string{"id", "data"}, []heap.ColumnAttribute{heap.AttrInt, heap.AttrText})
	if err != nil {
		return report, errors.Wrap(err, "selftest: create")
	}
	report.log("create ok")
	defer rel.Drop()

	h1, err := rel.Insert(heap.NewRow(heap.Col("id", heap.IntValue(1)), heap.Col("data", heap.TextValue("hello"))))
	if err != nil {
		return report, errors.Wrap(err, "selftest: insert record1")
	}
	h2, err := rel.Insert(heap.NewRow(heap.Col("id", heap.IntValue(2)), heap.Col("data", heap.TextValue("world"))))
	if err != nil {
		return report, errors.Wrap(err, "selftest: insert record2")
	}
	report.log("insert ok")

	handles, err := rel.Select()
	if err != nil {
		return report, errors.Wrap(err, "selftest: select")
	}
	if len(handles) != 2 {
		return report, errors.Wrapf(errs.ErrExec, "selftest: select returned %d handles, expected 2", len(handles))
	}
	report.log(fmt.Sprintf("select ok %d", len(handles)))

	row1, err := rel.Project(h1)
	if err != nil {
		return report, errors.Wrap(err, "selftest: project record1")
	}
	v, _ := row1.Get("data")
	if v.S != "hello" {
		return report, errors.Wrapf(errs.ErrExec, "selftest: project record1 got %q, expected %q", v.S, "hello")
	}

	row2, err := rel.Project(h2)
	if err != nil {
		return report, errors.Wrap(err, "selftest: project record2")
	}
	v, _ = row2.Get("data")
	if v.S != "world" {
		return report, errors.Wrapf(errs.ErrExec, "selftest: project record2 got %q, expected %q", v.S, "world")
	}
	report.log("project ok")

	if err := rel.Del(h1); err != nil {
		return report, errors.Wrap(err, "selftest: delete record1")
	}
	if _, err := rel.Project(h1); !errors.Is(err, errs.ErrTombstone) {
		return report, errors.Wrapf(errs.ErrExec, "selftest: project after delete returned %v, expected ErrTombstone", err)
	}

	row2Again, err := rel.Project(h2)
	if err != nil {
		return report, errors.Wrap(err, "selftest: project record2 after delete")
	}
	if !row2Again.Equal(row2) {
		return report, errors.Wrap(errs.ErrExec, "selftest: record2 mutated by neighbor's deletion")
	}
	report.log("delete ok")

	handles, err = rel.Select()
	if err != nil {
		return report, errors.Wrap(err, "selftest: select after delete")
	}
	if len(handles) != 1 {
		return report, errors.Wrapf(errs.ErrExec, "selftest: select after delete returned %d handles, expected 1", len(handles))
	}

	if err := rel.Drop(); err != nil {
		return report, errors.Wrap(err, "selftest: drop")
	}
	report.log("drop ok")
	return report, nil
}
