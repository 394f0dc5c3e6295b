package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "dupfind",
		Short:   "Find duplicate files and directories",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newFindCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
