package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/trogers1052/price-sync/internal/models"
)

// GetSymbols returns every (id, ticker) pair of the symbol directory
func (db *DB) GetSymbols() ([]models.Symbol, error) {
	query := `SELECT id, ticker FROM symbol ORDER BY id ASC`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbols: %w", err)
	}
	defer rows.Close()

	var symbols []models.Symbol
	for rows.Next() {
		var s models.Symbol
		if err := rows.Scan(&s.ID, &s.Ticker); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symbols: %w", err)
	}

	return symbols, nil
}

// GetSymbolByTicker looks up a single symbol, matching the ticker case-insensitively
func (db *DB) GetSymbolByTicker(ticker string) (*models.Symbol, error) {
	query := fmt.Sprintf(`SELECT id, ticker FROM symbol WHERE UPPER(ticker) = %s`, db.dialect.bindvar(1))

	var s models.Symbol
	err := db.conn.QueryRow(query, strings.ToUpper(ticker)).Scan(&s.ID, &s.Ticker)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("symbol not found: %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}
	return &s, nil
}
