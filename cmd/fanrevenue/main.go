package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fanrevenue/internal/cli"
	"fanrevenue/internal/config"
	applog "fanrevenue/internal/log"
)

var (
	rootCmd = &cobra.Command{
		Use:           "fanrevenue",
		Short:         "Monthly revenue analytics for fan club creators",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile(envFiles...)
			env := config.Load()
			logger = cli.SetupLogger(env.LogLevel, env.LogFormat)
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the fanrevenue version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	envFiles []string
	version  = "dev"
	logger   = applog.New(applog.DefaultConfig())
)

func main() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.AddCommand(versionCmd, serveCmd, importCmd, showCmd, customersCmd, calendarCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("fanrevenue failed", "error", err)
		os.Exit(1)
	}
}
