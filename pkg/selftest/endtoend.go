package selftest

import (
	"github.com/pkg/errors"

	"coredb/config"
	"coredb/pkg/astadapter"
	"coredb/pkg/errs"
	"coredb/pkg/executor"
)

// EndToEndReport is the transcript of one statement's input and the
// message the engine reported for it, in execution order.
type EndToEndReport struct {
	Lines []string
}

func (r *EndToEndReport) record(sql, message string) {
	r.Lines = append(r.Lines, "SQL> "+sql)
	r.Lines = append(r.Lines, message)
}

// EndToEnd drives the canonical CREATE TABLE / CREATE INDEX / INSERT /
// SELECT / DELETE / DROP lifecycle through a fresh engine, checking each
// result against what the statement is expected to report.
func EndToEnd(dir string) (*EndToEndReport, error) {
	report := &EndToEndReport{}

	eng, err := executor.New(config.New(dir))
	if err != nil {
		return report, errors.Wrap(err, "selftest: open engine")
	}
	defer eng.Close()

	run := func(sql, wantMessage string) error {
		stmt, err := astadapter.Parse(sql)
		if err != nil {
			return errors.Wrapf(err, "selftest: parse %q", sql)
		}
		res, err := eng.Exec(stmt)
		if err != nil {
			return errors.Wrapf(err, "selftest: exec %q", sql)
		}
		report.record(sql, res.Message)
		if wantMessage != "" && res.Message != wantMessage {
			return errors.Wrapf(errs.ErrExec, "selftest: %q reported %q, expected %q", sql, res.Message, wantMessage)
		}
		return nil
	}

	steps := []struct {
		sql  string
		want string
	}{
		{"CREATE TABLE foo (id INT, data TEXT)", "created foo"},
		{"INSERT INTO foo VALUES (1, 'hello')", "successfully inserted 1 row into foo"},
		{"INSERT INTO foo VALUES (2, 'world')", "successfully inserted 1 row into foo"},
		{"SELECT * FROM foo", "successfully returned 2 rows"},
		{"CREATE INDEX fx ON foo (id)", "created index fx"},
		{"INSERT INTO foo VALUES (3, 'again')", "successfully inserted 1 row into foo and 1 index"},
		{"SELECT * FROM foo WHERE id = 3", "successfully returned 1 rows"},
		{"DELETE FROM foo WHERE id = 1", "successfully deleted 1 row from foo and 1 index"},
		{"SELECT * FROM foo", "successfully returned 2 rows"},
		{"DROP INDEX fx FROM foo", "dropped index fx"},
		{"DROP TABLE foo", "dropped foo"},
		{"SHOW TABLES", "successfully returned 0 rows"},
	}

	for _, step := range steps {
		if err := run(step.sql, step.want); err != nil {
			return report, err
		}
	}

	return report, nil
}
