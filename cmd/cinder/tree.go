package main

import (
	"fmt"

	"github.com/ezachrisen/cinder/rulefile"
	"github.com/spf13/cobra"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [rule file...]",
		Short: "Print the syntax tree of every rule",
		Long: `Print the syntax tree of every rule in the given rule files, or in the
rule file named in the configuration when no file is given.`,
		RunE: runTree,
	}
	cmd.Flags().Bool("table", false, "print each rule as a table instead of a tree")
	return cmd
}

func runTree(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			return fmt.Errorf("no rule file given")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		files = []string{cfg.Rules}
	}
	table, _ := cmd.Flags().GetBool("table")

	out := cmd.OutOrStdout()
	for _, file := range files {
		defs, _, err := rulefile.Load(file)
		if err != nil {
			return err
		}
		for _, d := range defs {
			fmt.Fprintf(out, "[rule] %s: %s\n", d.ID, d.Root.Formula())
			if table {
				fmt.Fprintln(out, d.Root.String())
				continue
			}
			fmt.Fprintln(out, d.Root.Tree())
		}
	}
	return nil
}
