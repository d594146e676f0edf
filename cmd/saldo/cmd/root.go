// Package cmd provides the commands of the saldo CLI.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/controller"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/session"
	"saldo/internal/taxonomy"
)

var errNotLoggedIn = fmt.Errorf("%w: not logged in, run `saldo login` first", core.ErrAuth)

// app is the state shared by every command of one invocation.
type app struct {
	envFile string
	verbose bool
	now     func() time.Time

	cfg        *config.Config
	logger     *log.Logger
	categories *taxonomy.Mapper
	session    *session.Session
	client     *ledger.Client
	stdin      *bufio.Reader
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	rootCmd := &cobra.Command{
		Use:   "saldo",
		Short: "Track monthly expenses against your salary",
		Long: `saldo keeps your expenses in a ledger store and shows, for any month,
how much was spent, what is still pending and what is left of the salary.

Example:
  saldo login --email ana@example.com
  saldo add --description Mercado --amount 120,50 --category alimentação
  saldo summary --year 2024 --month 3`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.summaryCmd(),
		a.listCmd(),
		a.addCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.salaryCmd(),
		a.historyCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		cli.LoadEnvFile()
	}

	a.cfg = config.Load()
	if err := a.cfg.ValidateClient(); err != nil {
		return err
	}

	// Only warnings reach the terminal unless asked otherwise.
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = log.New(log.Config{Level: level, Component: log.ComponentApp, Output: cmd.ErrOrStderr()})

	categories, err := taxonomy.Load(a.cfg.CategoryAliasesFile)
	if err != nil {
		return err
	}
	a.categories = categories

	a.session = session.New(session.WithStore(session.FileStore{Path: a.cfg.SessionFile}))
	if err := a.session.Restore(); err != nil {
		a.logger.Warn("Ignoring unreadable session file", log.FieldError, err.Error(), "path", a.cfg.SessionFile)
	}

	a.client = ledger.New(ledger.Config{
		BaseURL:    a.cfg.LedgerURL,
		Timeout:    a.cfg.LedgerTimeout,
		Categories: a.categories,
		Logger:     a.logger,
	}, a.session)
	a.stdin = bufio.NewReader(cmd.InOrStdin())
	return nil
}

// controller returns a controller over the ledger for period. It fails
// when no session is held.
func (a *app) controller(period core.Period) (*controller.Controller, error) {
	if !a.session.Authenticated() {
		return nil, errNotLoggedIn
	}
	return controller.New(a.client,
		controller.WithLogger(a.logger),
		controller.WithClock(a.now),
		controller.WithPeriod(period)), nil
}

// periodFlags binds --year and --month. Unset values default to today.
type periodFlags struct {
	year  int
	month int
}

func (p *periodFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.year, "year", 0, "year of the period (default current)")
	cmd.Flags().IntVar(&p.month, "month", 0, "month of the period, 1-12 (default current)")
}

func (p periodFlags) period(now time.Time) (core.Period, error) {
	current := core.PeriodOf(now)
	year, month := p.year, p.month
	if year == 0 {
		year = current.Year
	}
	if month == 0 {
		month = current.Month
	}
	return core.NewPeriod(year, month)
}

// prompt writes label and reads one line of input.
func (a *app) prompt(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := a.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
