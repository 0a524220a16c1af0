package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/internal/i18n"
	"github.com/jmcleod/pocketledger/model"
)

func printTransactions(w io.Writer, p *i18n.Printer, txs []model.Transaction) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tKIND\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, t := range txs {
		category := t.CategoryName
		if category == "" {
			category = fmt.Sprintf("#%d", t.CategoryID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Day(), t.Kind, p.Money(t.Amount), category, t.Description)
	}
	tw.Flush()
}

// transactionFlags are shared by create and update.
type transactionFlags struct {
	description string
	amount      string
	date        string
	kind        string
	categoryID  int64
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "Amount, e.g. 42.90")
	cmd.Flags().StringVar(&f.date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "receita (income) or despesa (expense)")
	cmd.Flags().Int64VarP(&f.categoryID, "category", "c", 0, "Category id")
}

// apply overlays the flags that were set on in.
func (f *transactionFlags) apply(cmd *cobra.Command, in *model.TransactionInput) error {
	flags := cmd.Flags()
	if flags.Changed("description") {
		in.Description = f.description
	}
	if flags.Changed("amount") {
		amount, err := decimal.NewFromString(f.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q", f.amount)
		}
		in.Amount = amount
	}
	if flags.Changed("date") {
		in.Date = f.date
	}
	if flags.Changed("kind") {
		kind, err := model.ParseKind(f.kind)
		if err != nil {
			return err
		}
		in.Kind = kind
	}
	if flags.Changed("category") {
		in.CategoryID = f.categoryID
	}
	return nil
}

func newTransactionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"transaction", "tx"},
		Short:   "Manage income and expense entries",
	}

	var filter struct {
		kind       string
		from, to   string
		categoryID int64
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := model.TransactionFilter{From: filter.from, To: filter.to, CategoryID: filter.categoryID}
			if filter.kind != "" {
				kind, err := model.ParseKind(filter.kind)
				if err != nil {
					return err
				}
				f.Kind = kind
			}
			return o.withSession(cmd, func(a *app) error {
				txs, err := a.client.Transactions.List(cmd.Context(), f)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.LoadTransactionsFailed))
				}
				if txs == nil {
					txs = []model.Transaction{}
				}
				return o.emit(cmd, txs, func(w io.Writer) { printTransactions(w, a.printer, txs) })
			})
		},
	}
	list.Flags().StringVarP(&filter.kind, "kind", "k", "", "Only receita (income) or despesa (expense)")
	list.Flags().StringVar(&filter.from, "from", "", "First date, YYYY-MM-DD")
	list.Flags().StringVar(&filter.to, "to", "", "Last date, YYYY-MM-DD")
	list.Flags().Int64VarP(&filter.categoryID, "category", "c", 0, "Category id")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				t, err := a.client.Transactions.Get(cmd.Context(), id)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.LoadTransactionFailed))
				}
				return o.emit(cmd, t, func(w io.Writer) { printTransactions(w, a.printer, []model.Transaction{*t}) })
			})
		},
	}

	var createFlags transactionFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.TransactionInput{Date: time.Now().Format(model.DateLayout)}
			if err := createFlags.apply(cmd, &in); err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				t, err := a.client.Transactions.Create(cmd.Context(), in)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.CreateTransactionFailed))
				}
				return o.emit(cmd, t, func(w io.Writer) { printTransactions(w, a.printer, []model.Transaction{*t}) })
			})
		},
	}
	createFlags.register(create)

	var updateFlags transactionFlags
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				ctx := cmd.Context()
				current, err := a.client.Transactions.Get(ctx, id)
				if err != nil {
					return errors.New(a.session.Explain(ctx, err, i18n.LoadTransactionFailed))
				}
				in := model.TransactionInput{
					Description: current.Description,
					Amount:      current.Amount,
					Date:        current.Day(),
					Kind:        current.Kind,
					CategoryID:  current.CategoryID,
				}
				if err := updateFlags.apply(cmd, &in); err != nil {
					return err
				}
				t, err := a.client.Transactions.Update(ctx, id, in)
				if err != nil {
					return errors.New(a.session.Explain(ctx, err, i18n.UpdateTransactionFailed))
				}
				return o.emit(cmd, t, func(w io.Writer) { printTransactions(w, a.printer, []model.Transaction{*t}) })
			})
		},
	}
	updateFlags.register(update)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				conf, err := a.client.Transactions.Delete(cmd.Context(), id)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.DeleteTransactionFailed))
				}
				return o.emit(cmd, conf, func(w io.Writer) { line(w, "%s", a.printer.Text(i18n.Deleted)) })
			})
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}
