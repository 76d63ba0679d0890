package main

import (
	"fmt"
	"os"

	"github.com/firegate/firegate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "firegate:", err)
		os.Exit(1)
	}
}
