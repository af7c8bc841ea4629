package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	serve := newServeCommand()
	rootCmd := &cobra.Command{
		Use:          "exit-slip",
		Short:        "Dormitory exit slip backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	rootCmd.AddCommand(
		serve,
		newMigrateCommand(),
		newTokenCommand(),
		newHashTokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
