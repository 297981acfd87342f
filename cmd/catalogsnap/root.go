// Package main provides the entry point for the catalogsnap CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for catalogsnap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogsnap",
		Short: "Catalog tree crawler and snapshot tool",
		Long: `catalogsnap crawls hierarchical catalog sites and captures their
category tree as a snapshot.

It follows category links breadth first, records every category and leaf
entry it finds, and renders the result as a tree, JSON, or Markdown.
Snapshots are stored locally so successive crawls of the same catalog
can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
