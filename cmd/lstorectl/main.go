// lstorectl is an interactive CLI over a single in-memory L-Store table.
//
// Usage:
//
//	lstorectl --schema <table.json>
//
// Commands (in REPL):
//
//	insert <v0> <v1> ...                  Insert a new row
//	select <col> <value>                  Select rows where col == value
//	select-version <col> <value> <ver>    Select as of a relative version
//	update <key> <col>=<value> ...        Update columns by primary key
//	delete <key>                          Delete a row by primary key
//	sum <col> <lo> <hi>                   Sum col over key range [lo,hi]
//	sum-version <col> <lo> <hi> <ver>     Sum col as of a relative version
//	index <col>                           Build a secondary index on col
//	drop-index <col>                      Drop a secondary index
//	help                                  Show this help
//	exit / quit / q                       Exit
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/koroeder/lstore/internal/schema"
	"github.com/koroeder/lstore/query"
)

func main() {
	schemaPath := pflag.StringP("schema", "s", "", "path to a JWCC table schema file")
	pflag.Parse()

	if *schemaPath == "" {
		fmt.Fprintln(os.Stderr, "lstorectl: --schema is required")
		os.Exit(1)
	}

	tbl, err := schema.Load(*schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lstorectl: %v\n", err)
		os.Exit(1)
	}

	engine, err := query.NewEngine(tbl.Name, tbl.Columns, tbl.KeyColumn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lstorectl: %v\n", err)
		os.Exit(1)
	}
	for _, col := range tbl.SecondaryIndexes {
		engine.CreateIndex(col)
	}

	r := &REPL{engine: engine, table: tbl}
	if err := r.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "lstorectl: %v\n", err)
		os.Exit(1)
	}
}

// REPL is the interactive command loop around one query.Engine.
type REPL struct {
	engine *query.Engine
	table  schema.Table
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lstorectl_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("lstorectl - %s (%d columns, key_column=%d)\n", r.table.Name, r.table.Columns, r.table.KeyColumn)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("lstore> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "insert":
			r.cmdInsert(args)
		case "select":
			r.cmdSelect(args)
		case "select-version":
			r.cmdSelectVersion(args)
		case "update":
			r.cmdUpdate(args)
		case "delete":
			r.cmdDelete(args)
		case "sum":
			r.cmdSum(args)
		case "sum-version":
			r.cmdSumVersion(args)
		case "index":
			r.cmdIndex(args)
		case "drop-index":
			r.cmdDropIndex(args)
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"insert", "select", "select-version", "update", "delete",
		"sum", "sum-version", "index", "drop-index", "help", "exit", "quit", "q",
	}
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  insert <v0> <v1> ...                  Insert a new row")
	fmt.Println("  select <col> <value>                  Select rows where col == value")
	fmt.Println("  select-version <col> <value> <ver>    Select as of a relative version")
	fmt.Println("  update <key> <col>=<value> ...        Update columns by primary key")
	fmt.Println("  delete <key>                           Delete a row by primary key")
	fmt.Println("  sum <col> <lo> <hi>                   Sum col over key range [lo,hi]")
	fmt.Println("  sum-version <col> <lo> <hi> <ver>      Sum col as of a relative version")
	fmt.Println("  index <col>                           Build a secondary index on col")
	fmt.Println("  drop-index <col>                       Drop a secondary index")
	fmt.Println("  help                                   Show this help")
	fmt.Println("  exit / quit / q                        Exit")
}

func (r *REPL) cmdInsert(args []string) {
	if len(args) != r.table.Columns {
		fmt.Printf("insert: expected %d values, got %d\n", r.table.Columns, len(args))
		return
	}
	values, err := parseInts(args)
	if err != nil {
		fmt.Println("insert:", err)
		return
	}
	if !r.engine.Insert(values) {
		fmt.Println("insert: duplicate key or write failed")
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdSelect(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: select <col> <value>")
		return
	}
	col, value, err := parseColValue(args[0], args[1])
	if err != nil {
		fmt.Println("select:", err)
		return
	}
	rows := r.engine.Select(value, col, allMask(r.table.Columns))
	printRows(rows)
}

func (r *REPL) cmdSelectVersion(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: select-version <col> <value> <version>")
		return
	}
	col, value, err := parseColValue(args[0], args[1])
	if err != nil {
		fmt.Println("select-version:", err)
		return
	}
	version, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Println("select-version: bad version:", err)
		return
	}
	rows := r.engine.SelectVersion(value, col, allMask(r.table.Columns), version)
	printRows(rows)
}

func (r *REPL) cmdUpdate(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: update <key> <col>=<value> ...")
		return
	}
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("update: bad key:", err)
		return
	}
	newValues := make([]*int64, r.table.Columns)
	for _, pair := range args[1:] {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			fmt.Printf("update: bad assignment %q, want col=value\n", pair)
			return
		}
		col, err := strconv.Atoi(pair[:eq])
		if err != nil || col < 0 || col >= r.table.Columns {
			fmt.Printf("update: bad column in %q\n", pair)
			return
		}
		v, err := strconv.ParseInt(pair[eq+1:], 10, 64)
		if err != nil {
			fmt.Printf("update: bad value in %q\n", pair)
			return
		}
		newValues[col] = &v
	}
	if !r.engine.Update(key, newValues) {
		fmt.Println("update: key not found")
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <key>")
		return
	}
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("delete: bad key:", err)
		return
	}
	if !r.engine.Delete(key) {
		fmt.Println("delete: key not found")
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdSum(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: sum <col> <lo> <hi>")
		return
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("sum: bad column:", err)
		return
	}
	lo, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("sum: bad lo:", err)
		return
	}
	hi, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		fmt.Println("sum: bad hi:", err)
		return
	}
	total, ok := r.engine.Sum(lo, hi, col)
	if !ok {
		fmt.Println("sum: key column has no index")
		return
	}
	fmt.Println(total)
}

func (r *REPL) cmdSumVersion(args []string) {
	if len(args) != 4 {
		fmt.Println("usage: sum-version <col> <lo> <hi> <version>")
		return
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("sum-version: bad column:", err)
		return
	}
	lo, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("sum-version: bad lo:", err)
		return
	}
	hi, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		fmt.Println("sum-version: bad hi:", err)
		return
	}
	version, err := strconv.Atoi(args[3])
	if err != nil {
		fmt.Println("sum-version: bad version:", err)
		return
	}
	total, ok := r.engine.SumVersion(lo, hi, col, version)
	if !ok {
		fmt.Println("sum-version: key column has no index")
		return
	}
	fmt.Println(total)
}

func (r *REPL) cmdIndex(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: index <col>")
		return
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("index: bad column:", err)
		return
	}
	if !r.engine.CreateIndex(col) {
		fmt.Println("index: already exists or invalid column")
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdDropIndex(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: drop-index <col>")
		return
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("drop-index: bad column:", err)
		return
	}
	if !r.engine.DropIndex(col) {
		fmt.Println("drop-index: no such index, or it is the primary key")
		return
	}
	fmt.Println("OK")
}

func parseInts(args []string) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseColValue(colArg, valueArg string) (int, int64, error) {
	col, err := strconv.Atoi(colArg)
	if err != nil {
		return 0, 0, fmt.Errorf("bad column: %w", err)
	}
	value, err := strconv.ParseInt(valueArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value: %w", err)
	}
	return col, value, nil
}

func allMask(n int) []int {
	mask := make([]int, n)
	for i := range mask {
		mask[i] = 1
	}
	return mask
}

func printRows(rows []query.Record) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}
	for _, row := range rows {
		parts := make([]string, len(row.Columns))
		for i, v := range row.Columns {
			parts[i] = strconv.FormatInt(v, 10)
		}
		fmt.Printf("rid=%d %s\n", row.RID, strings.Join(parts, " "))
	}
}
