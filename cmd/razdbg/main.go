package main

import (
	"os"

	"github.com/razzie/razdbg/cmd/razdbg/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
