package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenai/skillforge/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skillforged",
		Short: "Skillforge daemon and CLI",
		Long:  "Skillforge daemon for running the ingestion workers and managing skills",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.SkillCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
