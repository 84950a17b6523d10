package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jo-hoe/qrsheet/internal/backend/model"
)

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	valueInputOption    = "USER_ENTERED"
	worksheetRows       = 1000
	worksheetColumns    = 20
)

// SheetsStore keeps rows in one worksheet of a Google spreadsheet found by name.
type SheetsStore struct {
	sheets *sheets.Service
	drive  *drive.Service
	config Config

	spreadsheetID  string
	spreadsheetURL string
}

// NewSheetsStore authenticates with the service account credentials file of config.
func NewSheetsStore(ctx context.Context, config Config, opts ...option.ClientOption) (*SheetsStore, error) {
	if config.CredentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(config.CredentialsFile)}, opts...)
	}

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return newSheetsStore(config, sheetsService, driveService), nil
}

func newSheetsStore(config Config, sheetsService *sheets.Service, driveService *drive.Service) *SheetsStore {
	return &SheetsStore{sheets: sheetsService, drive: driveService, config: config}
}

// Open finds the spreadsheet by exact name or creates it, then makes sure the
// worksheet exists.
func (s *SheetsStore) Open(ctx context.Context) error {
	id, err := s.findSpreadsheet(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = s.createSpreadsheet(ctx); err != nil {
			return err
		}
	}

	spreadsheet, err := s.sheets.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to load spreadsheet %s: %w", id, err)
	}
	s.spreadsheetID = id
	s.spreadsheetURL = spreadsheet.SpreadsheetUrl

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.config.WorksheetName {
			return nil
		}
	}
	return s.addWorksheet(ctx)
}

func (s *SheetsStore) findSpreadsheet(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(s.config.SpreadsheetName), spreadsheetMimeType)
	list, err := s.drive.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search spreadsheet: %w", err)
	}
	for _, f := range list.Files {
		if f.Name == s.config.SpreadsheetName {
			return f.Id, nil
		}
	}
	return "", nil
}

func (s *SheetsStore) createSpreadsheet(ctx context.Context) (string, error) {
	created, err := s.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: s.config.SpreadsheetName},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	slog.Info("SheetsStore: spreadsheet created", "name", s.config.SpreadsheetName, "id", created.SpreadsheetId)

	if s.config.ShareWithAnyone {
		_, err := s.drive.Permissions.Create(created.SpreadsheetId, &drive.Permission{
			Type: "anyone",
			Role: "reader",
		}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to share spreadsheet: %w", err)
		}
	}
	return created.SpreadsheetId, nil
}

func (s *SheetsStore) addWorksheet(ctx context.Context) error {
	request := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: s.config.WorksheetName,
					GridProperties: &sheets.GridProperties{
						RowCount:    worksheetRows,
						ColumnCount: worksheetColumns,
					},
				},
			},
		}},
	}
	if _, err := s.sheets.Spreadsheets.BatchUpdate(s.spreadsheetID, request).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add worksheet %q: %w", s.config.WorksheetName, err)
	}
	slog.Info("SheetsStore: worksheet added", "worksheet", s.config.WorksheetName)
	return nil
}

func (s *SheetsStore) ReadAll(ctx context.Context) ([]model.StoreRow, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	values, err := s.sheets.Spreadsheets.Values.Get(s.spreadsheetID, s.worksheetRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet: %w", err)
	}

	rows := make([]model.StoreRow, 0, len(values.Values))
	for _, raw := range values.Values {
		row := make(model.StoreRow, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SheetsStore) WriteFromTop(ctx context.Context, rows [][]string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	_, err := s.sheets.Spreadsheets.Values.Update(s.spreadsheetID, s.worksheetRange()+"!A1", valueRange(rows)).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write worksheet: %w", err)
	}
	return nil
}

func (s *SheetsStore) Append(ctx context.Context, rows [][]string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	_, err := s.sheets.Spreadsheets.Values.Append(s.spreadsheetID, s.worksheetRange()+"!A1", valueRange(rows)).
		ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to worksheet: %w", err)
	}
	return nil
}

// URL is the spreadsheet link, known after Open.
func (s *SheetsStore) URL() string {
	if s.spreadsheetURL == "" && s.spreadsheetID != "" {
		return "https://docs.google.com/spreadsheets/d/" + s.spreadsheetID
	}
	return s.spreadsheetURL
}

func (s *SheetsStore) Close() error {
	return nil
}

func (s *SheetsStore) requireOpen() error {
	if s.spreadsheetID == "" {
		return errors.New("spreadsheet is not open")
	}
	return nil
}

// worksheetRange quotes the worksheet title for A1 notation.
func (s *SheetsStore) worksheetRange() string {
	return "'" + strings.ReplaceAll(s.config.WorksheetName, "'", "''") + "'"
}

func valueRange(rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return &sheets.ValueRange{Values: values}
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
