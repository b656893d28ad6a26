package main

import (
	"os"

	"github.com/adpanel/adpanel/cmd/do/cmd"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "do",
		Short:        "Development and operations tools for adpanel",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.DevCmd())
	rootCmd.AddCommand(cmd.DBCmd())
	rootCmd.AddCommand(cmd.AdminCmd())
	rootCmd.AddCommand(cmd.LinksCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
