package cli

import (
	"fmt"
	"io"
)

func PrintRootHelp(w io.Writer) {
	fmt.Fprintln(w, `eventsearch - compile event search queries into where trees

USAGE
  eventsearch [global flags] <command> [args]

GLOBAL FLAGS
  --config <file>            (default: eventsearch.yaml, env EVENTSEARCH_*)
  --log-level debug|info|warn|error
  --backend sqlite|postgres
  --sqlite-path <dir|file.db>
  --sqlite-driver sqlite|sqlite3
  --pg-dsn <dsn>
  --pg-schema <name>
  --redis-addr <host:port>
  --redis-password <pw>
  --redis-db <n>
  --catalogs <a.yaml,b.yaml>
  --free-text all|last
  --print-metrics

COMMANDS
  compile -q <query> [-d dataset] [-f f1,f2] [--org N [--projects 1,2]]
          [--start T] [--end T] [--now T]
          [--format pretty|json|sql|msgpack] [--dialect clickhouse|duckdb]
          [--table name] [--placeholders]
  fields [-d dataset] [--format pretty|json]
  projects add --org N --id N --slug s
  projects list --org N [--format pretty|json]`)
}
