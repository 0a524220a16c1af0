package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/pocketledger/cmd/pocketledger/cmd"
)

func main() {
	memguard.CatchInterrupt()
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		// SafeExit purges locked memory before exiting.
		memguard.SafeExit(1)
	}
	memguard.Purge()
}
