// Command sqlunit runs unit tests declared inside SQL files.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlunit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
