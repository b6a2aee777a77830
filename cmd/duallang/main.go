package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "duallang",
		Short:   "duallang — incremental page and subtitle translation service",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newTranslateCmd(),
		newSubtitlesCmd(),
		newCacheCmd(),
		newStatsCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
