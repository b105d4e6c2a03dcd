package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/datachat-labs/devup/cmd/devup/cmds"
)

var version = "dev"

func main() {
	root := cmds.NewRootCmd(version)
	err := root.Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, cmds.ErrUsage) {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cmds.ExitCode(err))
}
