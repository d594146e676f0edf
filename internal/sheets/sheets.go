// Package sheets mirrors ledger periods to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	"saldo/internal/log"
)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// Exporter rewrites one tab per period with the period's records.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

// New creates an Exporter authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentialsJSON, err := readCredentials(cfg)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func readCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

// ExportPeriod replaces the content of the period's tab, creating the tab
// on first use.
func (e *Exporter) ExportPeriod(ctx context.Context, period core.Period, records []core.Expense) error {
	if err := period.Validate(); err != nil {
		return err
	}
	title := SheetTitle(period)

	if err := e.ensureSheet(ctx, title); err != nil {
		return err
	}

	all := fmt.Sprintf("'%s'!A:%s", title, lastColumn)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", all, err)
	}

	rows := BuildRows(records)
	rng := fmt.Sprintf("'%s'!A1:%s%d", title, lastColumn, len(rows))
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}

	e.logger.InfoContext(ctx, "Exported period",
		log.FieldOperation, log.OpExport,
		"sheet", title,
		"records", len(records))
	return nil
}

func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	e.logger.InfoContext(ctx, "Created sheet", "sheet", title)
	return nil
}
