package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath   string
	fileSize uint64
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:     "persistdsctl",
	Short:   "Inspect and manipulate a persistds-backed data file",
	Version: "0.1.0",
	Long: `persistdsctl opens a persistds backing file and runs one operation
against a named persistent list or B+-tree instance registered in it.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "path", "persistds.db", "backing file path")
	rootCmd.PersistentFlags().Uint64Var(&fileSize, "size", 1<<30, "backing file size in bytes, used when creating a new file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}
