package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/seed"
	"pharmaledger/pkg/logger"
)

func newDemoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a sale, its void and a rejected sale on an in-memory ledger",
		Long: `Seed the pharmacy chart into an in-memory ledger, then:

  1. sell 2 units at 100 (cost 60) to the walk-in customer, 150 paid in cash
  2. void the sale
  3. try to sell a category without a COGS mapping

Each step prints the vouchers it posted and the customer balance. The trial
balance is printed at the end. Nothing touches the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := dateFlag(cmd, "date")
			if err != nil {
				return err
			}
			return runDemo(logger.WithLogger(cmd.Context(), logger.Nop()), cmd.OutOrStdout(), date)
		},
	}
	cmd.Flags().String("date", "", "business date YYYY-MM-DD (default: today)")
	return cmd
}

var (
	demoStore = id.MustParse("01929a3e-0000-7000-8000-0000000000a1")
	demoUser  = id.MustParse("01929a3e-0000-7000-8000-0000000000b1")
)

type demo struct {
	ctx   context.Context
	out   io.Writer
	svc   *app.Services
	chart *seed.Result
	codes map[id.ID]string
}

func runDemo(ctx context.Context, out io.Writer, date time.Time) error {
	svc, chart, err := app.Demo(ctx, app.Options{Now: func() time.Time { return date.Add(12 * time.Hour) }})
	if err != nil {
		return err
	}
	d := &demo{ctx: ctx, out: out, svc: svc, chart: chart, codes: make(map[id.ID]string)}

	accounts, err := svc.Chart.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		d.codes[a.ID] = a.Code
	}

	customer := chart.Parties["Walk-in Customer"]
	category := chart.Categories["Medicines"]
	cash := chart.Account("1101")

	sale := posting.CreateTransactionRequest{
		Date:    date,
		StoreID: demoStore,
		UserID:  demoUser,
		PartyID: &customer,
		Lines: []posting.LineRequest{{
			CategoryID: &category,
			Quantity:   types.MoneyFromInt(2),
			UnitPrice:  types.MoneyFromInt(100),
			UnitCost:   types.MoneyFromInt(60),
		}},
		PaidAmount:       types.MoneyFromInt(150),
		PaymentAccountID: &cash,
	}

	fmt.Fprintln(out, "== 1. sale")
	res, err := svc.Posting.CreateSale(ctx, sale)
	if err != nil {
		return err
	}
	t := res.Transaction
	fmt.Fprintf(out, "%s total %s paid %s balance %s (%s)\n", t.Number,
		types.FormatMoney(t.TotalAmount), types.FormatMoney(t.PaidAmount),
		types.FormatMoney(t.BalanceAmount), t.PaymentStatus)
	d.printVoucher(res.Voucher)
	d.printVoucher(res.PaymentVoucher)
	if err := d.printBalance("1103"); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n== 2. void")
	voided, err := svc.Posting.VoidTransaction(ctx, posting.VoidRequest{
		TransactionID: t.ID,
		Reason:        "customer cancelled",
		UserID:        demoUser,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is %s, %d payment(s) voided\n", voided.Transaction.Number, voided.Transaction.Status, len(voided.VoidedPayments))
	for _, v := range voided.Reversals {
		d.printVoucher(v)
	}
	if err := d.printBalance("1103"); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n== 3. unmapped category")
	cosmetics := seed.CategoryID("Cosmetics")
	if err := svc.Chart.MapCategory(ctx, coa.CategoryMapping{
		CategoryID:     cosmetics,
		SalesAccountID: id.Ptr(chart.Account("4101")),
		StockAccountID: id.Ptr(chart.Account("1201")),
	}); err != nil {
		return err
	}
	sale.Lines[0].CategoryID = &cosmetics
	_, err = svc.Posting.CreateSale(ctx, sale)
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return fmt.Errorf("expected a mapping error, got %v", err)
	}
	fmt.Fprintf(out, "rejected: %s %s\n", appErr.Code, appErr.Message)

	fmt.Fprintln(out)
	tb, err := svc.Reports.TrialBalance(ctx, date)
	if err != nil {
		return err
	}
	printTrialBalance(out, tb)
	return nil
}

func (d *demo) printVoucher(v *ledger.Voucher) {
	if v == nil {
		return
	}
	fmt.Fprintf(d.out, "\n%s  %s  %s\n", v.Number, v.Date.Format("2006-01-02"), v.Narration)
	w := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, l := range v.Lines {
		fmt.Fprintf(w, "  %s\t%s\t%s\t\n", d.codes[l.AccountID], amount(l.Debit), amount(l.Credit))
	}
	debit, credit := v.Totals()
	fmt.Fprintf(w, "\t%s\t%s\t\n", types.FormatMoney(debit), types.FormatMoney(credit))
	w.Flush()
}

func (d *demo) printBalance(code string) error {
	b, err := d.svc.Reports.AccountBalance(d.ctx, d.chart.Account(code), nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "balance %s %s: %s\n", b.Code, b.Name, types.FormatMoney(b.Balance))
	return nil
}
