package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skytrack/cmd/skytrack/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "skytrack",
		Short:         "SkyTrack student productivity service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewExportCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "skytrack:", err)
		os.Exit(1)
	}
}
