package sheets

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// Mirror appends rows to the workbook on a best-effort basis. A nil
// Mirror is disabled and every call is a no-op.
type Mirror struct {
	client Client
}

func NewMirror(client Client) *Mirror {
	if client == nil {
		return nil
	}
	return &Mirror{client: client}
}

// Append writes rows to sheet. Failures are logged, never returned.
func (m *Mirror) Append(ctx context.Context, sheet string, rows ...[]any) {
	if m == nil || len(rows) == 0 {
		return
	}
	if err := m.client.Append(ctx, sheet, rows); err != nil {
		log.Warn().Err(err).Str("sheet", sheet).Int("rows", len(rows)).Msg("sheet mirror append failed")
	}
}

func (m *Mirror) Enabled() bool { return m != nil }

// EnsureWorksheets creates every known worksheet that is missing from the
// workbook. Failures are logged and counted so the mirror can still serve
// the worksheets that exist.
func EnsureWorksheets(ctx context.Context, client Client) int {
	names := make([]string, 0, len(Headers))
	for name := range Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		if err := client.EnsureSheet(ctx, name); err != nil {
			failed++
			log.Warn().Err(err).Str("sheet", name).Msg("⚠️ worksheet could not be created")
		}
	}
	return failed
}
