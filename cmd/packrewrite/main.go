package main

import (
	"os"

	"github.com/go-git/go-billy/v5/osfs"
)

func main() {
	cmd := newRootCmd(osfs.New("/"), os.Stdin, os.Stdout)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
