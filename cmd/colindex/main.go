// Command colindex creates, loads and searches colindex indexes.
package main

import (
	"os"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/colindex/colindex/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
