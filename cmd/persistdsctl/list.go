package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saptarshi/persistds"
)

var (
	instType string
	instID   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&instType, "type", "list", "instance type: list|bptree")
	rootCmd.PersistentFlags().StringVar(&instID, "id", "", "instance id")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newPrintCmd())
	rootCmd.AddCommand(newSnapshotCmd())
}

func openEngine() (*persistds.Engine, error) {
	printVerbose("opening %s (size=%d)\n", dbPath, fileSize)
	return persistds.Open(persistds.Config{Path: dbPath, FileSize: fileSize})
}

func requireID() error {
	if instID == "" {
		return fmt.Errorf("--id is required")
	}
	return nil
}

// bptree instances are a pure in-memory collaborator (spec section 6.1):
// the engine never persists one, so --type bptree operates on a tree
// scoped to this single invocation. create/add/remove/print against the
// same --id within one process only see each other via the in-process
// registry below; across separate invocations a fresh tree is built.
var bptreeInstances = map[string]*bptreeSession{}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the named instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(); err != nil {
				return err
			}

			if instType == "bptree" {
				return createBptree(instID)
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			_, err = e.BindList(instID)
			return err
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete every element of the named instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(); err != nil {
				return err
			}

			if instType == "bptree" {
				delete(bptreeInstances, instID)
				return nil
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			h, err := e.BindList(instID)
			if err != nil {
				return err
			}

			return h.Clear()
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <value>",
		Short: "Add a value to the named instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(); err != nil {
				return err
			}

			value, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing value %q: %w", args[0], err)
			}

			if instType == "bptree" {
				return bptreeAdd(instID, value)
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			h, err := e.BindList(instID)
			if err != nil {
				return err
			}

			return h.Push(value)
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [value]",
		Short: "Remove a value from the named instance (list: pops the most recent value, refused if a snapshot pins it; value argument ignored)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(); err != nil {
				return err
			}

			if instType == "bptree" {
				if len(args) != 1 {
					return fmt.Errorf("bptree remove requires a key argument")
				}

				key, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("parsing key %q: %w", args[0], err)
				}

				return bptreeRemove(instID, key)
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			h, err := e.BindList(instID)
			if err != nil {
				return err
			}

			v, err := h.Pop()
			if err != nil {
				return err
			}

			printInfo("%d\n", v)
			return nil
		},
	}
}

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print a structural dump of the named instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(); err != nil {
				return err
			}

			if instType == "bptree" {
				return bptreePrint(instID)
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			h, err := e.BindList(instID)
			if err != nil {
				return err
			}

			for _, v := range h.Dump() {
				printInfo("%d\n", v)
			}

			return nil
		},
	}
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <parent-id>",
		Short: "Record --id as a snapshot of parent-id's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(); err != nil {
				return err
			}

			if instType == "bptree" {
				return fmt.Errorf("bptree instances do not support snapshot")
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			return e.Snapshot(instID, args[0])
		},
	}
}
