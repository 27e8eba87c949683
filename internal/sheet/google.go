package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// TokenSourceFunc yields an OAuth token source valid for one fetch call.
// The credential holder provides this; refresh semantics are opaque to
// the fetcher.
type TokenSourceFunc func(ctx context.Context) (oauth2.TokenSource, error)

// GoogleFetcher fetches row snapshots from the Google Sheets API.
type GoogleFetcher struct {
	tokenSource TokenSourceFunc
	readRange   string
}

// NewGoogleFetcher creates a fetcher that authorizes each call through the
// given token source and reads the standard worktrack range.
func NewGoogleFetcher(tokenSource TokenSourceFunc) *GoogleFetcher {
	return &GoogleFetcher{
		tokenSource: tokenSource,
		readRange:   ReadRange,
	}
}

// FetchRows implements Fetcher against the Sheets values API.
//
// The returned rows preserve the order the API returned them. An empty
// sheet yields an empty slice, not an error.
func (g *GoogleFetcher) FetchRows(ctx context.Context, spreadsheetID string) ([]Row, error) {
	ts, err := g.tokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token source: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, g.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch range %s: %w", g.readRange, err)
	}

	rows := make([]Row, 0, len(resp.Values))
	for _, values := range resp.Values {
		rows = append(rows, RowFromValues(values))
	}
	return rows, nil
}

// IsRateLimited reports whether err is a "too many requests" signal from
// the API. The poller suppresses these from its operational log since the
// next scheduled cycle is the retry.
func IsRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}
