// Package main provides the pivotsql command.
package main

import (
	"os"

	"github.com/leapstack-labs/pivotsql/internal/cli"
	_ "github.com/leapstack-labs/pivotsql/pkg/adapters/duckdb"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
