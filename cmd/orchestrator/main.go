package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Multi-tenant cloud IDE orchestrator",
	Long: `orchestrator provisions and supervises per-branch, per-user IDE
sessions: bare git clones and worktrees, isolated Docker containers running
code-server, Traefik routing labels, and the recovery/monitoring loops that
keep them healthy.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"orchestrator version %s\ncommit: %s\nbuilt: %s\n",
		Version, Commit, BuildTime,
	))
	rootCmd.AddCommand(serveCmd)
}
