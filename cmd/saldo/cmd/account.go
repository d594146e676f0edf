package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	name     string
	email    string
	password string
}

func (a *app) credentials(cmd *cobra.Command, f *credentialFlags) error {
	var err error
	if f.email == "" {
		if f.email, err = a.prompt(cmd.OutOrStdout(), "E-mail: "); err != nil {
			return err
		}
	}
	if f.password == "" {
		if f.password, err = a.prompt(cmd.OutOrStdout(), "Senha: "); err != nil {
			return err
		}
	}
	if f.email == "" || f.password == "" {
		return errors.New("e-mail and password are required")
	}
	return nil
}

func (a *app) registerCmd() *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.credentials(cmd, &f); err != nil {
				return err
			}
			if err := a.client.Register(cmd.Context(), f.name, f.email, f.password); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			a.printSession(cmd, "Conta criada")
			return nil
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.email, "email", "", "account e-mail (prompted when empty)")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (prompted when empty)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the ledger store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.credentials(cmd, &f); err != nil {
				return err
			}
			if err := a.client.Login(cmd.Context(), f.email, f.password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			a.printSession(cmd, "Sessão iniciada")
			return nil
		},
	}
	cmd.Flags().StringVar(&f.email, "email", "", "account e-mail (prompted when empty)")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (prompted when empty)")
	return cmd
}

func (a *app) printSession(cmd *cobra.Command, msg string) {
	out := cmd.OutOrStdout()
	tok, err := a.session.Token()
	if err != nil || tok.Expiry.IsZero() {
		fmt.Fprintf(out, "%s.\n", msg)
		return
	}
	fmt.Fprintf(out, "%s, expira %s.\n", msg, humanize.Time(tok.Expiry))
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sessão encerrada.")
			return nil
		},
	}
}
