package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	"pharmaledger/internal/seed"
)

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a chart of accounts",
		Long: `Create heads, subheads, accounts, category mappings and parties from a YAML
chart. Without --file the built-in pharmacy chart is used. The whole chart is
applied in one transaction.`,
		Example: `  ledgerctl seed
  ledgerctl seed --file chart.yaml`,
		Args: cobra.NoArgs,
		RunE: withInfra(runSeed),
	}
	cmd.Flags().String("file", "", "YAML chart of accounts")
	return cmd
}

func loadChart(path string) (*seed.Chart, error) {
	if path == "" {
		return seed.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return seed.Load(f)
}

func runSeed(ctx context.Context, cmd *cobra.Command, cfg *config.Config, infra *app.Infra) error {
	path, _ := cmd.Flags().GetString("file")
	chart, err := loadChart(path)
	if err != nil {
		return fmt.Errorf("load chart: %w", err)
	}

	services, err := infra.Services(cfg)
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, services.TxManager, services.Chart, chart)
	if err != nil {
		return err
	}

	printSeedResult(cmd, res)
	return nil
}

func printSeedResult(cmd *cobra.Command, res *seed.Result) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	codes := make([]string, 0, len(res.Accounts))
	for code := range res.Accounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	fmt.Fprintln(w, "ACCOUNT\tID")
	for _, code := range codes {
		fmt.Fprintf(w, "%s\t%s\n", code, res.Accounts[code])
	}
	fmt.Fprintf(w, "\n%d accounts, %d categories, %d parties\n", len(res.Accounts), len(res.Categories), len(res.Parties))
}
