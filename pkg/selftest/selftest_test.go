package selftest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageTest(t *testing.T) {
	dir := t.TempDir()
	report, err := StorageTest(dir)
	require.NoError(t, err)
	require.Contains(t, report.Lines, "create ok")
	require.Contains(t, report.Lines, "insert ok")
	require.Contains(t, report.Lines, "project ok")
	require.Contains(t, report.Lines, "delete ok")
	require.Contains(t, report.Lines, "drop ok")
}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	report, err := EndToEnd(dir)
	require.NoError(t, err)
	require.NotEmpty(t, report.Lines)
}
