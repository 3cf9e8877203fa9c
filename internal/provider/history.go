package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/trogers1052/price-sync/internal/models"
)

// FetchSymbolHistory retrieves daily rows for one ticker from the CSV
// endpoint. Rows come back in provider order, usually newest first.
func (c *Client) FetchSymbolHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.DailyPriceRow, error) {
	reqURL := c.historyURL(ticker, start, end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", ticker, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, ticker, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrTransport, ticker, res.StatusCode)
	}

	reader := csv.NewReader(res.Body)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	// header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: reading header: %v", ErrTransport, ticker, err)
	}

	var rows []models.DailyPriceRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				c.log.WithField("ticker", ticker).WithField("line", line).WithError(err).Warn("skipping unreadable row")
				continue
			}
			return nil, fmt.Errorf("%w: %s: reading body: %v", ErrTransport, ticker, err)
		}

		row, err := parseCSVRecord(record)
		if err != nil {
			c.log.WithField("ticker", ticker).WithField("line", line).WithError(err).Warn("skipping malformed row")
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// historyURL encodes the range as separate year/month/day parameters.
// The provider expects zero-based months.
func (c *Client) historyURL(ticker string, start, end time.Time) string {
	q := url.Values{}
	q.Set("s", ticker)
	q.Set("a", strconv.Itoa(int(start.Month())-1))
	q.Set("b", strconv.Itoa(start.Day()))
	q.Set("c", strconv.Itoa(start.Year()))
	q.Set("d", strconv.Itoa(int(end.Month())-1))
	q.Set("e", strconv.Itoa(end.Day()))
	q.Set("f", strconv.Itoa(end.Year()))
	return c.rowEndpoint + "?" + q.Encode()
}
