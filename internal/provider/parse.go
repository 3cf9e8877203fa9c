package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/price-sync/internal/models"
)

// Date,Open,High,Low,Close,Volume,Adj Close
const csvFields = 7

func parseCSVRecord(record []string) (models.DailyPriceRow, error) {
	if len(record) < csvFields {
		return models.DailyPriceRow{}, fmt.Errorf("expected %d fields, got %d", csvFields, len(record))
	}
	return parseRow(record[0], record[1], record[2], record[3], record[4], record[5], record[6])
}

func parseRow(date, open, high, low, closePrice, volume, adjClose string) (models.DailyPriceRow, error) {
	var row models.DailyPriceRow
	var err error

	row.Date, err = time.Parse(dateFormat, strings.TrimSpace(date))
	if err != nil {
		return row, fmt.Errorf("invalid date %q: %w", date, err)
	}

	prices := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"open", open, &row.Open},
		{"high", high, &row.High},
		{"low", low, &row.Low},
		{"close", closePrice, &row.Close},
		{"adj close", adjClose, &row.AdjClose},
	}
	for _, p := range prices {
		*p.dst, err = decimal.NewFromString(strings.TrimSpace(p.value))
		if err != nil {
			return row, fmt.Errorf("invalid %s %q: %w", p.name, p.value, err)
		}
		if p.dst.IsNegative() {
			return row, fmt.Errorf("negative %s %q", p.name, p.value)
		}
	}

	row.Volume, err = parseVolume(volume)
	if err != nil {
		return row, err
	}

	return row, nil
}

// parseVolume accepts plain integers and integral decimals such as "1200.0".
func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("negative volume %q", s)
		}
		return v, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) || d.IsNegative() {
		return 0, fmt.Errorf("invalid volume %q", s)
	}
	return d.IntPart(), nil
}
