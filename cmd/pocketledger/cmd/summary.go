package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/internal/i18n"
	"github.com/jmcleod/pocketledger/model"
)

type summaryOutput struct {
	From    string        `json:"data_inicio"`
	To      string        `json:"data_fim"`
	Summary model.Summary `json:"resumo"`
}

func newSummaryCmd(o *rootOptions) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and balance for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", month)
				}
				at = t
			}
			from, to := model.MonthRange(at)
			return o.withSession(cmd, func(a *app) error {
				sum, err := a.client.Transactions.Summary(cmd.Context(), from, to)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.LoadSummaryFailed))
				}
				out := summaryOutput{From: from, To: to, Summary: *sum}
				return o.emit(cmd, out, func(w io.Writer) {
					line(w, "%s .. %s", from, to)
					tw := newTable(w)
					fmt.Fprintf(tw, "%s\t%s\n", a.printer.Text(i18n.IncomeLabel), a.printer.Money(sum.Income))
					fmt.Fprintf(tw, "%s\t%s\n", a.printer.Text(i18n.ExpenseLabel), a.printer.Money(sum.Expense))
					fmt.Fprintf(tw, "%s\t%s\n", a.printer.Text(i18n.BalanceLabel), a.printer.Money(sum.Balance))
					tw.Flush()
				})
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month as YYYY-MM (default current month)")
	return cmd
}
