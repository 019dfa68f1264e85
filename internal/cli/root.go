// Package cli implements the ledgerctl commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
)

// Version is set by the build.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerctl",
		Short:   "Operate the pharmacy ledger",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("env-file", "", "load settings from this .env file")

	rootCmd.AddCommand(
		newMigrateCommand(),
		newSeedCommand(),
		newTrialBalanceCommand(),
		newNextNumberCommand(),
		newDemoCommand(),
	)
	return rootCmd
}

// connect loads the configuration and opens the database for commands that need it.
func connect(cmd *cobra.Command) (*config.Config, *app.Infra, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	if _, err := app.NewLogger(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	infra, err := app.Connect(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, infra, nil
}

func withInfra(fn func(ctx context.Context, cmd *cobra.Command, cfg *config.Config, infra *app.Infra) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, infra, err := connect(cmd)
		if err != nil {
			return err
		}
		defer infra.Close()
		return fn(cmd.Context(), cmd, cfg, infra)
	}
}
