// Command restqld demonstrates the external contract spec §1 describes:
// load a catalog, parse one HTTP-shaped request into an Abstract Request,
// authorize it against a role's grants, and compile it to dialect SQL. It
// never opens a database connection or executes anything (explicit
// Non-goal) — the compiled statement and its params are printed for the
// caller to run through whatever driver it likes, and a second flag group
// lets you feed back a simulated result row to see the response
// interpreter's status/header/body triple.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/formatter"
	"github.com/restql/restql/formatter/clickhouse"
	"github.com/restql/restql/formatter/mysql"
	"github.com/restql/restql/formatter/postgres"
	"github.com/restql/restql/formatter/sqlite"
	"github.com/restql/restql/permission"
	"github.com/restql/restql/request"
	"github.com/restql/restql/response"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to the catalog introspection JSON document")
	dialectName := flag.String("dialect", "postgres", "postgres, sqlite, mysql, or clickhouse")
	method := flag.String("method", http.MethodGet, "HTTP method")
	schema := flag.String("schema", "", "Accept-Profile / Content-Profile; empty uses the catalog default")
	object := flag.String("object", "", "root relation name")
	rawQuery := flag.String("query", "", "raw query string, e.g. 'select=id,name&order=id.desc'")
	bodyPath := flag.String("body", "", "path to a JSON or CSV payload file, for POST/PATCH/PUT")
	role := flag.String("role", "anon", "role the permission layer checks grants for")
	maxRows := flag.Int("max-rows", 1000, "hard cap on the root node's row count")

	rpc := flag.Bool("rpc", false, "treat -object as a function name for POST/GET /rpc/<function>")
	returnsScalar := flag.Bool("returns-scalar", false, "with -rpc, the function returns a bare scalar rather than a row set")

	simulate := flag.Bool("simulate-response", false, "run the compiled request's result through the response interpreter using -page-total/-total")
	pageTotal := flag.Int("page-total", 0, "simulated row count for -simulate-response")
	total := flag.Int("total", -1, "simulated total_result_set; -1 means unknown")

	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *catalogPath == "" || *object == "" {
		logger.Error("missing required flag", "need", "-catalog and -object")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*catalogPath)
	if err != nil {
		logger.Error("read catalog", "error", err)
		os.Exit(1)
	}
	cat, err := catalog.Load(raw, *dialectName)
	if err != nil {
		logger.Error("load catalog", "error", err)
		os.Exit(1)
	}

	query, err := url.ParseQuery(*rawQuery)
	if err != nil {
		logger.Error("parse query", "error", err)
		os.Exit(1)
	}

	var body []byte
	if *bodyPath != "" {
		body, err = os.ReadFile(*bodyPath)
		if err != nil {
			logger.Error("read body", "error", err)
			os.Exit(1)
		}
	}

	result, err := request.Parse(request.Input{
		Method:        *method,
		Schema:        *schema,
		Object:        *object,
		Catalog:       cat,
		Query:         query,
		Headers:       http.Header{},
		Body:          body,
		MaxRows:       *maxRows,
		IsFunction:    *rpc,
		ReturnsScalar: *returnsScalar,
	})
	if err != nil {
		logger.Error("parse request", "error", err, "status", response.StatusFor(err, *role != "anon"))
		os.Exit(1)
	}

	if err := permission.Check(result.AR, *role, cat, nil); err != nil {
		logger.Error("check permission", "error", err, "status", response.StatusFor(err, *role != "anon"))
		os.Exit(1)
	}

	dialect, err := dialectFor(*dialectName)
	if err != nil {
		logger.Error("resolve dialect", "error", err)
		os.Exit(1)
	}

	sql, params, err := compile(result.AR, dialect, cat, result.Prefer)
	if err != nil {
		logger.Error("compile", "error", err)
		os.Exit(1)
	}

	fmt.Println(sql)
	if len(params) > 0 {
		encoded, _ := json.Marshal(params)
		fmt.Println(string(encoded))
	}

	if !*simulate {
		return
	}

	var totalPtr *int
	if *total >= 0 {
		totalPtr = total
	}
	resp, err := response.Interpret(response.Input{
		Kind:       result.AR.Kind,
		IsPut:      result.IsPut,
		HadColumns: result.HadColumns,
		Accept:     result.Accept,
		Prefer:     result.Prefer,
		Row:        &response.Row{PageTotal: *pageTotal, TotalResultSet: totalPtr},
	})
	if err != nil {
		logger.Error("interpret response", "error", err, "status", response.StatusFor(err, *role != "anon"))
		os.Exit(1)
	}
	logger.Info("response", "status", resp.Status, "content-range", resp.Headers.Get("Content-Range"))
}

func dialectFor(name string) (formatter.Dialect, error) {
	switch name {
	case "postgres":
		return postgres.Dialect, nil
	case "sqlite":
		return sqlite.Dialect, nil
	case "mysql":
		return mysql.Dialect, nil
	case "clickhouse":
		return clickhouse.Dialect, nil
	default:
		return formatter.Dialect{}, fmt.Errorf("unknown dialect %q", name)
	}
}

// compile picks the single-statement path for Select/FunctionCall nodes
// and Postgres mutations, and the two-stage path for every other
// dialect's mutations — printing only the stage-1 statement, since
// stage 2 needs the stage-1 result's primary keys, which this command
// never executes anything to obtain (spec §4.6 Non-goal: no SQL
// execution).
func compile(node *ast.Node, d formatter.Dialect, cat *catalog.Catalog, prefer request.Prefer) (string, []any, error) {
	switch node.Kind {
	case ast.Select, ast.FunctionCall:
		return formatter.Format(node, d, cat, prefer)
	default:
		if d.SupportsReturning {
			return formatter.Format(node, d, cat, prefer)
		}
		stage1, params, _, err := formatter.FormatMutationTwoStage(node, d, cat)
		return stage1, params, err
	}
}
