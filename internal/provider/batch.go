package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trogers1052/price-sync/internal/models"
)

type batchResponse struct {
	Query struct {
		Count   int `json:"count"`
		Results *struct {
			Quote json.RawMessage `json:"quote"`
		} `json:"results"`
	} `json:"query"`
}

type batchQuote struct {
	Symbol   string `json:"Symbol"`
	Date     string `json:"Date"`
	Open     string `json:"Open"`
	High     string `json:"High"`
	Low      string `json:"Low"`
	Close    string `json:"Close"`
	Volume   string `json:"Volume"`
	AdjClose string `json:"Adj_Close"`
}

// FetchManySymbols retrieves daily rows for all tickers in one request and
// groups them by the ticker each record carries. Meant for short ranges.
func (c *Client) FetchManySymbols(ctx context.Context, tickers []string, start, end time.Time) (map[string][]models.DailyPriceRow, error) {
	reqURL := c.batchURL(tickers, start, end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrTransport, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}

	quotes, err := decodeQuotes(body)
	if err != nil {
		return nil, err
	}

	// keys are upper-cased to match the tickers sent in the query
	out := make(map[string][]models.DailyPriceRow)
	for i, q := range quotes {
		row, err := parseRow(q.Date, q.Open, q.High, q.Low, q.Close, q.Volume, q.AdjClose)
		if err != nil {
			c.log.WithField("ticker", q.Symbol).WithField("index", i).WithError(err).Warn("skipping malformed quote")
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(q.Symbol))
		out[ticker] = append(out[ticker], row)
	}

	return out, nil
}

// decodeQuotes unwraps query.results.quote, which is a list, or a bare
// object when the result holds a single record.
func decodeQuotes(body []byte) ([]batchQuote, error) {
	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Query.Results == nil {
		return nil, fmt.Errorf("%w: results missing", ErrMalformedResponse)
	}

	raw := bytes.TrimSpace(resp.Query.Results.Quote)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: quote missing", ErrMalformedResponse)
	}

	var quotes []batchQuote
	if raw[0] == '{' {
		var single batchQuote
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		quotes = append(quotes, single)
	} else if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return quotes, nil
}

func (c *Client) batchURL(tickers []string, start, end time.Time) string {
	q := url.Values{}
	q.Set("q", batchQuery(tickers, start, end))
	q.Set("format", "json")
	q.Set("env", c.batchEnv)
	return c.batchEndpoint + "?" + q.Encode()
}

func batchQuery(tickers []string, start, end time.Time) string {
	quoted := make([]string, len(tickers))
	for i, t := range tickers {
		quoted[i] = `"` + strings.ToUpper(t) + `"`
	}
	return fmt.Sprintf(
		`select * from yahoo.finance.historicaldata where symbol IN (%s) AND startDate="%s" AND endDate="%s"`,
		strings.Join(quoted, ","), start.Format(dateFormat), end.Format(dateFormat),
	)
}
