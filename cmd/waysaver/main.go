package main

import (
	"os"

	"github.com/thesavant42/waysaver/cmd/waysaver/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
