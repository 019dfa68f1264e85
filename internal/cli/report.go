package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/reports"
)

func newTrialBalanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trial-balance",
		Short:   "Print the trial balance",
		Example: `  ledgerctl trial-balance --as-of 2026-09-30`,
		Args:    cobra.NoArgs,
		RunE: withInfra(func(ctx context.Context, cmd *cobra.Command, cfg *config.Config, infra *app.Infra) error {
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			services, err := infra.Services(cfg)
			if err != nil {
				return err
			}
			tb, err := services.Reports.TrialBalance(ctx, asOf)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tb)
			}
			printTrialBalance(cmd.OutOrStdout(), tb)
			return nil
		}),
	}
	cmd.Flags().String("as-of", "", "report date YYYY-MM-DD (default: today)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

// dateFlag parses a YYYY-MM-DD flag, defaulting to today (UTC).
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

func printTrialBalance(out io.Writer, tb *reports.TrialBalance) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Trial balance as of %s\t\t\t\t\n", tb.AsOf.Format("2006-01-02"))
	fmt.Fprintln(w, "CODE\tNAME\tFAMILY\tDEBIT\tCREDIT\t")
	for _, r := range tb.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", r.Code, r.Name, r.Family, amount(r.Debit), amount(r.Credit))
	}
	fmt.Fprintf(w, "\tTOTAL\t\t%s\t%s\t\n", types.FormatMoney(tb.TotalDebit), types.FormatMoney(tb.TotalCredit))
	w.Flush()

	if !tb.Balanced() {
		fmt.Fprintln(out, "WARNING: trial balance does not balance")
	}
}

func amount(m types.Money) string {
	if m.IsZero() {
		return ""
	}
	return types.FormatMoney(m)
}
