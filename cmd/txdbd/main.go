// Command txdbd is an interactive shell over the transactional page
// cache: it lets an operator open a transaction, scan or mutate a table,
// and commit or abort it, to exercise the locking and recovery
// discipline directly without a SQL front end (parsing SQL is explicitly
// out of scope for this engine).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/otterdb/txdb/catalog"
	"github.com/otterdb/txdb/config"
	"github.com/otterdb/txdb/godb"
)

type session struct {
	bp  *godb.BufferPool
	cat *catalog.Catalog
	tid *godb.TransactionID
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(slog.LevelInfo)
	if cfg.Server.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	godb.PageSize = cfg.Storage.PageSize

	bp := godb.NewBufferPool(cfg.Storage.BufferPages, cfg.LockTimeout())
	sess := &session{bp: bp, cat: catalog.New(cfg.Storage.Dir, bp)}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "txdb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     historyPath(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("txdb ready; type \\help for commands")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "\\q" || line == "quit" || line == "exit" {
			return
		}
		if err := sess.dispatch(line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".txdb_history"
	}
	return home + "/.txdb_history"
}

func (s *session) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "\\help":
		fmt.Println(`commands:
  createtable <name> <field:type>...          create a table (type is int or string)
  begin                                        start a transaction
  insert <table> <values...>                   insert a row into the current transaction
  scan <table>                                 print every row of a table under the current transaction
  query <table> [where <f> <op> <v>] [project <f,...>] [orderby <f> [asc|desc]] [limit <n>]
                                                scan a table through a filter/project/orderby/limit plan
  join <tableA> <fieldA> <tableB> <fieldB>     equi-join two tables on a field and print the result
  copyinto <dst> <src> [where <f> <op> <v>]    copy (optionally filtered) rows from src into dst
  deletewhere <table> <f> <op> <v>             delete every row of table matching the predicate
  commit                                        commit the current transaction
  abort                                         abort the current transaction
  tables                                        list known tables`)
		return nil
	case "createtable":
		return s.createTable(args)
	case "begin":
		return s.begin()
	case "insert":
		return s.insert(args)
	case "scan":
		return s.scan(args)
	case "query":
		return s.query(args)
	case "join":
		return s.join(args)
	case "copyinto":
		return s.copyInto(args)
	case "deletewhere":
		return s.deleteWhere(args)
	case "commit":
		return s.end(true)
	case "abort":
		return s.end(false)
	case "tables":
		return s.listTables()
	default:
		return fmt.Errorf("unknown command %q (try \\help)", cmd)
	}
}

func (s *session) createTable(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: createtable <name> <field:type>...")
	}
	var fields []godb.FieldType
	for _, spec := range args[1:] {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("bad field spec %q, want name:type", spec)
		}
		var ft godb.DBType
		switch parts[1] {
		case "int":
			ft = godb.IntType
		case "string":
			ft = godb.StringType
		default:
			return fmt.Errorf("unknown field type %q", parts[1])
		}
		fields = append(fields, godb.FieldType{Fname: parts[0], Ftype: ft})
	}
	_, err := s.cat.CreateTable(args[0], &godb.TupleDesc{Fields: fields})
	return err
}

func (s *session) begin() error {
	if s.tid != nil {
		return fmt.Errorf("a transaction is already open")
	}
	tid := godb.NewTransactionID()
	s.tid = &tid
	fmt.Println(tid.String())
	return nil
}

func (s *session) requireTxn() (godb.TransactionID, error) {
	if s.tid == nil {
		return godb.TransactionID{}, fmt.Errorf("no open transaction; run begin first")
	}
	return *s.tid, nil
}

func (s *session) insert(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: insert <table> <values...>")
	}
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	tbl, err := s.cat.Lookup(args[0])
	if err != nil {
		return err
	}
	desc := tbl.File.Descriptor()
	values := args[1:]
	if len(values) != len(desc.Fields) {
		return fmt.Errorf("table %s has %d fields, got %d values", args[0], len(desc.Fields), len(values))
	}
	fieldVals := make([]godb.DBValue, len(values))
	for i, v := range values {
		fv, err := parseFieldValue(desc.Fields[i], v)
		if err != nil {
			return err
		}
		fieldVals[i] = fv
	}
	t := &godb.Tuple{Desc: *desc, Fields: fieldVals}
	_, err = s.bp.InsertTuple(tid, tbl.ID, t)
	return err
}

// parseFieldValue parses raw as a value of ft's type, the way insert,
// query's where clause, and deletewhere's predicate all need to turn a
// command-line token into a godb.DBValue.
func parseFieldValue(ft godb.FieldType, raw string) (godb.DBValue, error) {
	switch ft.Ftype {
	case godb.IntType:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", ft.Fname, err)
		}
		return godb.IntField{Value: n}, nil
	case godb.StringType:
		return godb.StringField{Value: raw}, nil
	default:
		return nil, fmt.Errorf("field %s has unknown type", ft.Fname)
	}
}

// parseBoolOp parses one of the comparison operator tokens a where/predicate
// clause accepts.
func parseBoolOp(tok string) (godb.BoolOp, error) {
	switch tok {
	case "=", "==":
		return godb.OpEq, nil
	case "!=", "<>":
		return godb.OpNeq, nil
	case ">":
		return godb.OpGt, nil
	case ">=":
		return godb.OpGe, nil
	case "<":
		return godb.OpLt, nil
	case "<=":
		return godb.OpLe, nil
	case "like":
		return godb.OpLike, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", tok)
	}
}

// findField looks up name in desc, the way a where/orderby/project clause
// resolves a bare column name typed at the prompt to its FieldType.
func findField(desc *godb.TupleDesc, name string) (godb.FieldType, error) {
	for _, f := range desc.Fields {
		if f.Fname == name {
			return f, nil
		}
	}
	return godb.FieldType{}, fmt.Errorf("no such field %q", name)
}

// buildFilter builds a Filter over child from a "where <field> <op> <value>"
// clause, resolving field and value against desc.
func buildFilter(desc *godb.TupleDesc, field, op, value string, child godb.Operator) (godb.Operator, error) {
	ft, err := findField(desc, field)
	if err != nil {
		return nil, err
	}
	boolOp, err := parseBoolOp(op)
	if err != nil {
		return nil, err
	}
	fv, err := parseFieldValue(ft, value)
	if err != nil {
		return nil, err
	}
	return godb.NewFilter(godb.NewConstExpr(fv, ft.Ftype), boolOp, godb.NewFieldExpr(ft), child)
}

func (s *session) scan(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scan <table>")
	}
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	tbl, err := s.cat.Lookup(args[0])
	if err != nil {
		return err
	}
	return printAll(tid, tbl.File)
}

// printAll prints op's header and every tuple it yields under tid.
func printAll(tid godb.TransactionID, op godb.Operator) error {
	iter, err := op.Iterator(tid)
	if err != nil {
		return err
	}
	fmt.Println(op.Descriptor().HeaderString(true))
	for {
		t, err := iter()
		if err != nil {
			return err
		}
		if t == nil {
			return nil
		}
		fmt.Println(t.PrettyPrintString(true))
	}
}

// query runs a scan of table through an optional where/project/orderby/limit
// plan: "query <table> [where <f> <op> <v>] [project <f,...>] [orderby <f>
// [asc|desc]] [limit <n>]". Clauses may appear in any order; each one adds
// a stage on top of the plan built so far, so a repeated clause adds
// another stage rather than being rejected.
func (s *session) query(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: query <table> [where <f> <op> <v>] [project <f,...>] [orderby <f> [asc|desc]] [limit <n>]")
	}
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	tbl, err := s.cat.Lookup(args[0])
	if err != nil {
		return err
	}

	var plan godb.Operator = tbl.File
	desc := tbl.File.Descriptor()
	rest := args[1:]

	for len(rest) > 0 {
		clause := rest[0]
		switch clause {
		case "where":
			if len(rest) < 4 {
				return fmt.Errorf("where needs <field> <op> <value>")
			}
			plan, err = buildFilter(desc, rest[1], rest[2], rest[3], plan)
			if err != nil {
				return err
			}
			rest = rest[4:]
		case "project":
			if len(rest) < 2 {
				return fmt.Errorf("project needs a comma-separated field list")
			}
			names := strings.Split(rest[1], ",")
			selectFields := make([]godb.Expr, len(names))
			for i, n := range names {
				ft, err := findField(desc, n)
				if err != nil {
					return err
				}
				selectFields[i] = godb.NewFieldExpr(ft)
			}
			plan, err = godb.NewProjectOp(selectFields, names, false, plan)
			if err != nil {
				return err
			}
			rest = rest[2:]
		case "orderby":
			if len(rest) < 2 {
				return fmt.Errorf("orderby needs a field")
			}
			ft, err := findField(desc, rest[1])
			if err != nil {
				return err
			}
			ascending := true
			consumed := 2
			if len(rest) >= 3 && (rest[2] == "asc" || rest[2] == "desc") {
				ascending = rest[2] == "asc"
				consumed = 3
			}
			plan, err = godb.NewOrderBy([]godb.Expr{godb.NewFieldExpr(ft)}, plan, []bool{ascending})
			if err != nil {
				return err
			}
			rest = rest[consumed:]
		case "limit":
			if len(rest) < 2 {
				return fmt.Errorf("limit needs a count")
			}
			n, err := strconv.ParseInt(rest[1], 10, 64)
			if err != nil {
				return err
			}
			plan = godb.NewLimitOp(godb.NewConstExpr(godb.IntField{Value: n}, godb.IntType), plan)
			rest = rest[2:]
		default:
			return fmt.Errorf("unknown query clause %q", clause)
		}
	}

	return printAll(tid, plan)
}

// join computes and prints the equi-join of tableA and tableB on fieldA and
// fieldB: "join <tableA> <fieldA> <tableB> <fieldB>".
func (s *session) join(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: join <tableA> <fieldA> <tableB> <fieldB>")
	}
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	tblA, err := s.cat.Lookup(args[0])
	if err != nil {
		return err
	}
	tblB, err := s.cat.Lookup(args[2])
	if err != nil {
		return err
	}
	ftA, err := findField(tblA.File.Descriptor(), args[1])
	if err != nil {
		return err
	}
	ftB, err := findField(tblB.File.Descriptor(), args[3])
	if err != nil {
		return err
	}
	joinOp, err := godb.NewJoin(tblA.File, godb.NewFieldExpr(ftA), tblB.File, godb.NewFieldExpr(ftB), s.bp.NumPages())
	if err != nil {
		return err
	}
	return printAll(tid, joinOp)
}

// copyInto copies every row of src (optionally restricted by a where
// clause) into dst and prints how many rows were copied: "copyinto <dst>
// <src> [where <f> <op> <v>]". dst and src must share a schema.
func (s *session) copyInto(args []string) error {
	if len(args) != 2 && len(args) != 6 {
		return fmt.Errorf("usage: copyinto <dst> <src> [where <f> <op> <v>]")
	}
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	dst, err := s.cat.Lookup(args[0])
	if err != nil {
		return err
	}
	src, err := s.cat.Lookup(args[1])
	if err != nil {
		return err
	}

	var plan godb.Operator = src.File
	if len(args) == 6 {
		if args[2] != "where" {
			return fmt.Errorf("usage: copyinto <dst> <src> [where <f> <op> <v>]")
		}
		plan, err = buildFilter(src.File.Descriptor(), args[3], args[4], args[5], plan)
		if err != nil {
			return err
		}
	}

	insertOp := godb.NewInsertOp(s.bp, dst.ID, plan)
	return printAll(tid, insertOp)
}

// deleteWhere deletes every row of table matching a predicate and prints
// the number deleted: "deletewhere <table> <f> <op> <v>".
func (s *session) deleteWhere(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: deletewhere <table> <f> <op> <v>")
	}
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	tbl, err := s.cat.Lookup(args[0])
	if err != nil {
		return err
	}
	filtered, err := buildFilter(tbl.File.Descriptor(), args[1], args[2], args[3], tbl.File)
	if err != nil {
		return err
	}
	del := godb.NewDeleteOp(s.bp, filtered)
	return printAll(tid, del)
}

func (s *session) end(commit bool) error {
	tid, err := s.requireTxn()
	if err != nil {
		return err
	}
	s.tid = nil
	return s.bp.TransactionComplete(tid, commit)
}

func (s *session) listTables() error {
	for _, t := range s.cat.Tables() {
		fmt.Printf("%d\t%s\n", t.ID, t.Name)
	}
	return nil
}
