// Package sheets exports report tables to a Google spreadsheet, one tab per report.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finboard/internal/log"
	"finboard/internal/report"
)

// Generator writes the request's table to a new sheet of one spreadsheet.
type Generator struct {
	svc           *gsheet.Service
	spreadsheetID string
	baseURL       string
	now           func() time.Time
	logger        *log.Logger
}

type Option func(*Generator)

func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = l.WithComponent(log.ComponentSheets) }
}

// WithClock fixes the time used in tab titles.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

const docsURL = "https://docs.google.com/spreadsheets/d/"

// New creates a Generator over an existing sheets service.
func New(svc *gsheet.Service, spreadsheetID string, opts ...Option) (*Generator, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	g := &Generator{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		baseURL:       docsURL,
		now:           time.Now,
		logger:        log.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NewService builds a sheets service. With an empty credentialsFile a saved
// OAuth user token (GOOGLE_OAUTH_TOKEN_FILE) is used first, then service
// account credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS. Extra
// options are appended.
func NewService(ctx context.Context, credentialsFile string, extra ...goption.ClientOption) (*gsheet.Service, error) {
	user, err := userCredentials(ctx)
	if err != nil {
		return nil, err
	}
	var opts []goption.ClientOption
	if user != nil && credentialsFile == "" {
		opts = append(opts, user)
	} else {
		credentialsJSON, err := serviceAccountJSON(credentialsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func serviceAccountJSON(path string) ([]byte, error) {
	if path != "" {
		return readCredentials(path)
	}
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	return readCredentials(path)
}

func readCredentials(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return raw, nil
}

// Generate adds a tab named after the report and fills it with the table.
func (g *Generator) Generate(ctx context.Context, req report.Request) (string, error) {
	title := g.tabTitle(req)

	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("add sheet %q: %w", title, err)
	}
	var sheetID int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	values := toValues(req.Table)
	if len(values) > 0 {
		rng := fmt.Sprintf("'%s'!A1", title)
		_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("write rows to %q: %w", title, err)
		}
	}

	g.logger.InfoContext(ctx, "Report tab written",
		"sheet", title,
		log.FieldCount, len(req.Table.Rows))
	return fmt.Sprintf("%s%s/edit#gid=%d", g.baseURL, g.spreadsheetID, sheetID), nil
}

func (g *Generator) tabTitle(req report.Request) string {
	name := req.Table.Title
	if name == "" {
		name = string(req.Kind)
	}
	return fmt.Sprintf("%s %s", name, g.now().UTC().Format("2006-01-02 15.04.05"))
}

func toValues(t report.Table) [][]any {
	var out [][]any
	if len(t.Header) > 0 {
		out = append(out, toRow(t.Header))
	}
	for _, r := range t.Rows {
		out = append(out, toRow(r))
	}
	return out
}

func toRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

var _ report.Generator = (*Generator)(nil)
