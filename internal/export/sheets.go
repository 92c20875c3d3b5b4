package export

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter implements SheetWriter using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

type sheetMeta struct {
	id int64
}

// Write ensures the sheets exist, then clears and rewrites them.
func (w *SheetsWriter) Write(ctx context.Context, tables []Table) error {
	names := make([]string, 0, len(tables))
	ranges := make([]string, 0, len(tables))
	data := make([]*sheets.ValueRange, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
		ranges = append(ranges, t.Name)
		data = append(data, &sheets.ValueRange{Range: t.Name + "!A1", Values: t.Rows})
	}

	meta, err := w.ensureSheets(ctx, names...)
	if err != nil {
		return err
	}

	_, err = w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{Ranges: ranges},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheets: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data:             data,
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheets: %w", err)
	}

	var reqs []*sheets.Request
	for _, t := range tables {
		if len(t.Rows) > 0 {
			reqs = append(reqs, headerFormatReqs(meta[t.Name].id, int64(len(t.Rows[0])))...)
		}
	}
	return w.batchUpdate(ctx, reqs)
}

// AppendLog ensures the log sheet exists, writes the header row if the sheet is
// empty, then appends one data row.
func (w *SheetsWriter) AppendLog(ctx context.Context, sheet string, header, row []any) error {
	meta, err := w.ensureSheets(ctx, sheet)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", sheet, err)
	}

	existing, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, sheet+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", sheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			sheet+"!A1",
			&sheets.ValueRange{Values: [][]any{header}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", sheet, err)
		}
		if err := w.batchUpdate(ctx, headerFormatReqs(meta[sheet].id, int64(len(header)))); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", sheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		sheet+"!A1",
		&sheets.ValueRange{Values: [][]any{row}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", sheet, err)
	}
	return nil
}

// ensureSheets creates any of the named sheets that do not already exist and
// returns the metadata of all requested sheets.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) (map[string]sheetMeta, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	meta := make(map[string]sheetMeta, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		meta[s.Properties.Title] = sheetMeta{id: s.Properties.SheetId}
	}

	var requests []*sheets.Request
	for _, name := range names {
		if _, ok := meta[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return meta, nil
	}

	resp, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating sheets: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			p := reply.AddSheet.Properties
			meta[p.Title] = sheetMeta{id: p.SheetId}
		}
	}

	return meta, nil
}

func (w *SheetsWriter) batchUpdate(ctx context.Context, reqs []*sheets.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("formatting sheets: %w", err)
	}
	return nil
}

// headerFormatReqs highlights and freezes the first row of a sheet.
func headerFormatReqs(sheetID, cols int64) []*sheets.Request {
	// #D9EAD3
	lightGreen := &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827}

	return []*sheets.Request{
		cellFormatReq(sheetID, 0, 1, 0, cols,
			&sheets.CellFormat{
				BackgroundColor:     lightGreen,
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}
}

func cellFormatReq(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}
