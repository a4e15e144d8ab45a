package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// CSV SOURCES - Published sheet exports over HTTP, or files on disk
// =============================================================================

// CSVRoster reads the roster from a CSV export. Location is an http(s)
// URL or a file path.
type CSVRoster struct {
	Location string
	Client   *http.Client
}

func (s *CSVRoster) FetchRoster(ctx context.Context) ([]generic.RosterRow, error) {
	records, err := fetchCSV(ctx, s.Client, s.Location)
	if err != nil {
		return nil, &generic.FeedError{Feed: "roster", Err: err}
	}
	return DecodeRoster(records)
}

// CSVWorkReports reads the work-report log from a CSV export.
type CSVWorkReports struct {
	Location string
	Client   *http.Client
}

func (s *CSVWorkReports) FetchWorkReports(ctx context.Context) ([]generic.WorkReportRow, error) {
	records, err := fetchCSV(ctx, s.Client, s.Location)
	if err != nil {
		return nil, &generic.FeedError{Feed: "work_report", Err: err}
	}
	return DecodeWorkReports(records)
}

func fetchCSV(ctx context.Context, client *http.Client, location string) ([][]string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: status %d", location, resp.StatusCode)
		}
		return ReadCSV(resp.Body)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads every record. Ragged rows and stray quotes are tolerated,
// as hand-edited sheets produce both.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

// WriteCSV writes records as CSV.
func WriteCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
