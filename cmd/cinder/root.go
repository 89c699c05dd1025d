package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cinder",
		Short: "Incremental consistency checking of quantified rules over context streams",
		Long: `cinder keeps a checking tree for every rule and updates it as contexts
are added to and removed from the context sets, so that each check only
recomputes what the changes affected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "YAML configuration file")

	root.AddCommand(newCheckCmd(), newTreeCmd())
	return root
}
