package main

import (
	"fmt"
	"os"

	"github.com/iliyamo/flightdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flightdesk:", err)
		os.Exit(1)
	}
}
