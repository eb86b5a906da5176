package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"Tasmeem/lib/sl"
)

const sheetsBaseURL = "https://sheets.googleapis.com/v4"

// SheetSource reads style rows from a Google spreadsheet through the
// values endpoint. Expected columns: code, prompt, provider marker.
type SheetSource struct {
	spreadsheetId string
	apiKey        string
	readRange     string
	baseURL       string
	client        *http.Client
	log           *slog.Logger
}

func NewSheetSource(spreadsheetId, apiKey, readRange string, log *slog.Logger) *SheetSource {
	return &SheetSource{
		spreadsheetId: spreadsheetId,
		apiKey:        apiKey,
		readRange:     readRange,
		baseURL:       sheetsBaseURL,
		client:        &http.Client{Timeout: 30 * time.Second},
		log:           log.With(sl.Module("sheets")),
	}
}

type valuesResponse struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *SheetSource) FetchRows(ctx context.Context) ([]Row, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?key=%s",
		s.baseURL,
		url.PathEscape(s.spreadsheetId),
		url.PathEscape(s.readRange),
		url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sheet: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			s.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var values valuesResponse
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if values.Error != nil {
		return nil, fmt.Errorf("sheets api: %d %s", values.Error.Code, values.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheets api: status %d", resp.StatusCode)
	}

	rows := make([]Row, 0, len(values.Values))
	for _, cells := range values.Values {
		row := Row{}
		if len(cells) > 0 {
			row.Code = cells[0]
		}
		if len(cells) > 1 {
			row.Prompt = cells[1]
		}
		if len(cells) > 2 {
			row.Provider = cells[2]
		}
		rows = append(rows, row)
	}

	s.log.With(
		slog.String("range", values.Range),
		slog.Int("rows", len(rows)),
	).Debug("sheet fetched")

	return rows, nil
}
