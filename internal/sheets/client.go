// Package sheets mirrors records into the Google Sheets workbook the
// dashboard team reads, and imports legacy rows from it.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client is the worksheet surface the rest of the app uses.
type Client interface {
	Append(ctx context.Context, sheet string, rows [][]any) error
	Read(ctx context.Context, sheet string) ([][]any, error)
	// Reset clears a worksheet and writes back its header row.
	Reset(ctx context.Context, sheet string) error
	EnsureSheet(ctx context.Context, sheet string) error
}

type GoogleClient struct {
	svc           *gsheets.Service
	spreadsheetID string
}

func NewGoogleClient(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleClient, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleClient{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *GoogleClient) Append(ctx context.Context, sheet string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, sheet, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

func (c *GoogleClient) Read(ctx context.Context, sheet string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return resp.Values, nil
}

func (c *GoogleClient) Reset(ctx context.Context, sheet string) error {
	values, err := c.Read(ctx, sheet)
	if err != nil {
		return err
	}
	header := headerRow(sheet, values)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	if len(header) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, sheet+"!A1", &gsheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("rewrite %s header: %w", sheet, err)
	}
	return nil
}

// EnsureSheet creates the worksheet with its header when it is missing.
func (c *GoogleClient) EnsureSheet(ctx context.Context, sheet string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add worksheet %s: %w", sheet, err)
	}
	if header := Headers[sheet]; len(header) > 0 {
		return c.Append(ctx, sheet, [][]any{toRow(header)})
	}
	return nil
}

// headerRow keeps the existing header, falling back to the known one.
func headerRow(sheet string, values [][]any) []any {
	if len(values) > 0 && len(values[0]) > 0 {
		return values[0]
	}
	return toRow(Headers[sheet])
}

func toRow(cols []string) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

var _ Client = (*GoogleClient)(nil)
