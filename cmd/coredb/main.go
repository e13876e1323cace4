// Command coredb is the interactive shell for the engine: a data
// directory is bootstrapped on startup, then a read-eval-print loop
// accepts statements one per line until `quit` (spec §4.7, §8).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"coredb/config"
	"coredb/pkg/astadapter"
	"coredb/pkg/executor"
	"coredb/pkg/logging"
	"coredb/pkg/selftest"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <data-dir>\n", os.Args[0])
		os.Exit(1)
	}
	cfg := config.New(os.Args[1])

	eng, err := executor.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not open data directory:", err)
		os.Exit(1)
	}
	defer eng.Close()

	repl(cfg.DataDir, eng)
}

func repl(dataDir string, eng *executor.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("SQL> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "quit":
			return
		case line == "test":
			runStorageTest(dataDir)
			continue
		case line == "test2" || line == "test queries":
			runEndToEnd(dataDir)
			continue
		}

		stmt, err := astadapter.Parse(line)
		if err != nil {
			fmt.Println(err)
			continue
		}

		res, err := eng.Exec(stmt)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Print(render(res))
	}
}

func runStorageTest(dataDir string) {
	report, err := selftest.StorageTest(dataDir)
	for _, line := range report.Lines {
		fmt.Println(line)
	}
	if err != nil {
		fmt.Println("FAILED:", err)
		return
	}
	fmt.Println("storage self-test passed")
}

func runEndToEnd(dataDir string) {
	dir, err := os.MkdirTemp("", "coredb-test2-*")
	if err != nil {
		fmt.Println("FAILED:", err)
		return
	}
	defer os.RemoveAll(dir)

	report, err := selftest.EndToEnd(dir)
	for _, line := range report.Lines {
		fmt.Println(line)
	}
	if err != nil {
		fmt.Println("FAILED:", err)
		return
	}
	fmt.Println("end-to-end test passed")
}

// render formats a QueryResult the way the shell prints it: a header
// row, a ruled separator, one line per data row, then the message
// (spec §4.7).
func render(res *executor.QueryResult) string {
	var b strings.Builder

	if len(res.ColumnNames) > 0 {
		header := strings.Join(res.ColumnNames, " | ")
		b.WriteString(header)
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("-", len(header)))
		b.WriteByte('\n')

		for _, row := range res.Rows {
			cells := make([]string, len(res.ColumnNames))
			for i, name := range res.ColumnNames {
				v, _ := row.Get(name)
				cells[i] = v.String()
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteByte('\n')
		}
	}

	b.WriteString(res.Message)
	b.WriteByte('\n')
	return b.String()
}

func init() {
	logging.SetDebug(os.Getenv("COREDB_DEBUG") != "")
}
