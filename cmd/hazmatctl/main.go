package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/hazmat-api/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hazmatctl",
		Short:         "Administration tool for the hazmat storage API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.SeedCmd(cli.OpenEnv))
	rootCmd.AddCommand(cli.UserCmd(cli.OpenEnv))
	rootCmd.AddCommand(cli.EvaluateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
