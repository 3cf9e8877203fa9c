package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/price-sync/internal/models"
)

const dailyPriceColumns = 11

// InsertDailyPrices stores rows for one symbol, skipping any row whose
// (symbol_id, price_date) already exists. All rows share one
// created/updated timestamp. It returns the number of rows actually inserted.
func (db *DB) InsertDailyPrices(vendorID, symbolID int, rows []models.DailyPriceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if db.dialect.quiet != "" {
		if _, err := tx.Exec(db.dialect.quiet); err != nil {
			return 0, fmt.Errorf("failed to silence notices: %w", err)
		}
	}

	now := time.Now().UTC()
	chunkSize := db.dialect.maxParams / dailyPriceColumns
	if chunkSize > 1000 {
		chunkSize = 1000
	}

	var inserted int64
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		query, args := db.buildDailyPriceInsert(vendorID, symbolID, now, rows[start:end])
		result, err := tx.Exec(query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert daily prices for symbol %d: %w", symbolID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read inserted row count: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

func (db *DB) buildDailyPriceInsert(vendorID, symbolID int, now time.Time, rows []models.DailyPriceRow) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO daily_price (
		data_vendor_id, symbol_id, price_date, created_date, last_updated_date,
		open_price, high_price, low_price, close_price, volume, adj_close_price
	) VALUES `)

	args := make([]interface{}, 0, len(rows)*dailyPriceColumns)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < dailyPriceColumns; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(db.dialect.bindvar(i*dailyPriceColumns + c + 1))
		}
		sb.WriteByte(')')

		args = append(args,
			vendorID, symbolID, r.Date, now, now,
			r.Open, r.High, r.Low, r.Close, r.Volume, r.AdjClose,
		)
	}
	sb.WriteString(` ON CONFLICT (symbol_id, price_date) DO NOTHING`)

	return sb.String(), args
}

// GetDailyPrices retrieves stored prices for a symbol within an inclusive date range, oldest first
func (db *DB) GetDailyPrices(symbolID int, startDate, endDate time.Time) ([]*models.DailyPrice, error) {
	query := fmt.Sprintf(`
		SELECT id, data_vendor_id, symbol_id, price_date, created_date, last_updated_date,
		       open_price, high_price, low_price, close_price, volume, adj_close_price
		FROM daily_price
		WHERE symbol_id = %s AND price_date >= %s AND price_date <= %s
		ORDER BY price_date ASC
	`, db.dialect.bindvar(1), db.dialect.bindvar(2), db.dialect.bindvar(3))

	rows, err := db.conn.Query(query, symbolID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily prices: %w", err)
	}
	defer rows.Close()

	var prices []*models.DailyPrice
	for rows.Next() {
		var p models.DailyPrice
		var volume sql.NullInt64

		err := rows.Scan(
			&p.ID, &p.DataVendorID, &p.SymbolID, &p.PriceDate, &p.CreatedDate, &p.LastUpdatedDate,
			&p.Open, &p.High, &p.Low, &p.Close, &volume, &p.AdjClose,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		if volume.Valid {
			p.Volume = volume.Int64
		}
		prices = append(prices, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily prices: %w", err)
	}

	return prices, nil
}

// CountDailyPrices returns how many prices are stored for a symbol
func (db *DB) CountDailyPrices(symbolID int) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM daily_price WHERE symbol_id = %s`, db.dialect.bindvar(1))

	var n int64
	if err := db.conn.QueryRow(query, symbolID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count daily prices: %w", err)
	}
	return n, nil
}

// LatestPriceDate returns the most recent stored price date for a symbol.
// ok is false when nothing is stored yet.
func (db *DB) LatestPriceDate(symbolID int) (date time.Time, ok bool, err error) {
	query := fmt.Sprintf(`
		SELECT price_date
		FROM daily_price
		WHERE symbol_id = %s
		ORDER BY price_date DESC
		LIMIT 1
	`, db.dialect.bindvar(1))

	err = db.conn.QueryRow(query, symbolID).Scan(&date)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest price date: %w", err)
	}
	return date, true, nil
}
