package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"saldo/internal/controller"
	"saldo/internal/core"
)

// formFlags binds the fields of an expense form.
type formFlags struct {
	form core.ExpenseForm
}

func (f *formFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.form.Description, "description", "d", "", "what was bought")
	cmd.Flags().StringVarP(&f.form.Amount, "amount", "a", "", "amount, e.g. 12,34 or 12.34")
	cmd.Flags().StringVar(&f.form.Status, "status", "", "pago or pendente (default pendente)")
	cmd.Flags().StringVarP(&f.form.Category, "category", "c", "", "category name or alias")
	cmd.Flags().StringVar(&f.form.Date, "date", "", "date as YYYY-MM-DD (default today or the month's first day)")
}

// over fills the fields the user did not set from r.
func (f formFlags) over(cmd *cobra.Command, r core.Expense) core.ExpenseForm {
	form := core.ExpenseForm{
		Description: r.Description,
		Amount:      r.Amount.String(),
		Status:      string(r.Status),
		Category:    string(r.Category),
		Date:        r.Date.String(),
	}
	flags := cmd.Flags()
	if flags.Changed("description") {
		form.Description = f.form.Description
	}
	if flags.Changed("amount") {
		form.Amount = f.form.Amount
	}
	if flags.Changed("status") {
		form.Status = f.form.Status
	}
	if flags.Changed("category") {
		form.Category = f.form.Category
	}
	if flags.Changed("date") {
		form.Date = f.form.Date
	}
	return form
}

func (a *app) addCmd() *cobra.Command {
	var ff formFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := ff.form.Parse(a.categories)
			if err != nil {
				return err
			}
			period := core.PeriodOf(a.now())
			if !in.Date.IsZero() {
				period = in.Date.Period()
			}
			ctl, err := a.controller(period)
			if err != nil {
				return err
			}
			saved, err := ctl.Submit(cmd.Context(), in)
			return a.reportSaved(cmd, "Criado", saved, err)
		},
	}
	ff.bind(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var (
		pf periodFlags
		ff formFlags
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change an expense of a month",
		Long: `Change an expense of a month. Only the fields given as flags change;
the others keep their stored value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, target, err := a.loadRecord(cmd, pf, args[0])
			if err != nil {
				return err
			}
			in, err := ff.over(cmd, target).Parse(a.categories)
			if err != nil {
				return err
			}
			if err := ctl.BeginEdit(target); err != nil {
				return err
			}
			saved, err := ctl.Submit(cmd.Context(), in)
			return a.reportSaved(cmd, "Atualizado", saved, err)
		},
	}
	pf.bind(cmd)
	ff.bind(cmd)
	return cmd
}

// loadRecord loads the period and finds id in it.
func (a *app) loadRecord(cmd *cobra.Command, pf periodFlags, id string) (*controller.Controller, core.Expense, error) {
	period, err := pf.period(a.now())
	if err != nil {
		return nil, core.Expense{}, err
	}
	ctl, err := a.controller(period)
	if err != nil {
		return nil, core.Expense{}, err
	}
	if err := ctl.Reload(cmd.Context()); err != nil {
		return nil, core.Expense{}, err
	}
	r, ok := ctl.Find(id)
	if !ok {
		return nil, core.Expense{}, fmt.Errorf("%w: expense %s in %s", core.ErrNotFound, id, period)
	}
	return ctl, r, nil
}

// reportSaved prints the stored record. A failed refresh after a
// successful write is reported without failing the command.
func (a *app) reportSaved(cmd *cobra.Command, verb string, saved core.Expense, err error) error {
	if saved.ID == "" {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s %s (%s, %s)\n",
		verb, saved.ID, saved.Date, saved.Description, saved.Amount.Format(), saved.Category.Label())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Aviso: não foi possível atualizar a visão: %v\n", err)
	}
	return nil
}

func (a *app) deleteCmd() *cobra.Command {
	var (
		pf  periodFlags
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove an expense of a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, target, err := a.loadRecord(cmd, pf, args[0])
			if err != nil {
				return err
			}
			if err := ctl.RequestDelete(target.ID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := a.confirm(out, fmt.Sprintf("Excluir %q (%s)? [s/N] ", target.Description, target.Amount.Format()))
				if err != nil {
					return err
				}
				if !ok {
					ctl.CancelDelete()
					fmt.Fprintln(out, "Cancelado.")
					return nil
				}
			}

			if err := ctl.ConfirmDelete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Excluído %s.\n", target.ID)
			return nil
		},
	}
	pf.bind(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) confirm(out io.Writer, question string) (bool, error) {
	answer, err := a.prompt(out, question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "s", "sim", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
