package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saldo/internal/aggregate"
	"saldo/internal/core"
)

func (a *app) summaryCmd() *cobra.Command {
	var pf periodFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the totals of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := pf.period(a.now())
			if err != nil {
				return err
			}
			ctl, err := a.controller(period)
			if err != nil {
				return err
			}
			if err := ctl.Start(cmd.Context()); err != nil {
				return err
			}
			v := ctl.Snapshot()
			printSummary(cmd.OutOrStdout(), v.Summary)
			if v.Drift != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Aviso: %v\n", v.Drift)
			}
			return nil
		},
	}
	pf.bind(cmd)
	return cmd
}

func printSummary(out io.Writer, s aggregate.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Período\t%s\n", s.Period)
	fmt.Fprintf(w, "Salário\t%s\n", s.Salary.Format())
	fmt.Fprintf(w, "Total\t%s\n", s.Total.Format())
	fmt.Fprintf(w, "Pago\t%s\n", s.Paid.Format())
	fmt.Fprintf(w, "Pendente\t%s\n", s.Pending.Format())
	fmt.Fprintf(w, "Saldo\t%s\n", s.Balance.Format())
	fmt.Fprintf(w, "Lançamentos\t%d\n", s.Count)
	fmt.Fprintln(w)
	for _, e := range s.ByCategory.Entries() {
		fmt.Fprintf(w, "%s\t%s\n", e.Category.Label(), e.Amount.Format())
	}
	w.Flush()
}

func (a *app) listCmd() *cobra.Command {
	var (
		pf       periodFlags
		search   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the expenses of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := pf.period(a.now())
			if err != nil {
				return err
			}
			filter := aggregate.Filter{Search: search}
			if category != "" {
				c, ok := a.categories.Lookup(category)
				if !ok {
					return fmt.Errorf("%w: %q", core.ErrInvalidCategory, category)
				}
				filter.Category = c
			}

			ctl, err := a.controller(period)
			if err != nil {
				return err
			}
			if err := ctl.Reload(cmd.Context()); err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), ctl.Visible(filter))
			return nil
		},
	}
	pf.bind(cmd)
	cmd.Flags().StringVarP(&search, "search", "s", "", "only records containing this text")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only records of this category")
	return cmd
}

func printRecords(out io.Writer, records []core.Expense) {
	if len(records) == 0 {
		fmt.Fprintln(out, "Nenhum lançamento.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tData\tDescrição\tCategoria\tStatus\tValor")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Date, r.Description, r.Category.Label(), r.Status.Label(), r.Amount.Format())
	}
	fmt.Fprintf(w, "\t\t\t\tTotal\t%s\n", aggregate.PeriodTotal(records).Format())
	w.Flush()
}

func (a *app) salaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "salary [AMOUNT]",
		Short: "Show or change the salary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := a.controller(core.PeriodOf(a.now()))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				amount, err := core.ParseMoney(args[0])
				if err != nil {
					return err
				}
				if err := ctl.ChangeSalary(cmd.Context(), amount); err != nil {
					return err
				}
			} else if err := ctl.RefreshSalary(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Salário: %s\n", ctl.Snapshot().Salary.Format())
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the total spent per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := a.controller(core.PeriodOf(a.now()))
			if err != nil {
				return err
			}
			if err := ctl.RefreshHistory(cmd.Context()); err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), ctl.Snapshot().History)
			return nil
		},
	}
}

func printHistory(out io.Writer, points []aggregate.HistoryPoint) {
	if len(points) == 0 {
		fmt.Fprintln(out, "Nenhum histórico.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t\n", p.Label, p.Total.Format())
	}
	w.Flush()
}
