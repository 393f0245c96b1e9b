// Package cmd implements the farmline command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "farmline",
		Short: "Farmline IVR: crop price, farming advice and weather advisory voice line",
		Long: "farmline serves the Twilio voice webhooks of the Farmline advisory line and " +
			"provides tools to test the call flow, PIN extraction and weather advisories locally.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (empty to skip)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newAdviseCmd(),
		newExtractPINCmd(),
		newSimulateCmd(),
	)
	return rootCmd
}

// loadEnvFile loads path into the environment without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}
