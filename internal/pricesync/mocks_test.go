package pricesync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/price-sync/internal/models"
)

type insertCall struct {
	VendorID int
	SymbolID int
	Rows     []models.DailyPriceRow
}

// MockRepository implements SymbolRepository and PriceRepository for testing
type MockRepository struct {
	symbols   []models.Symbol
	stored    map[string]bool // key: symbolID:date
	latest    map[int]time.Time
	symbolErr error
	insertErr error

	InsertCalls []insertCall
}

func NewMockRepository(symbols ...models.Symbol) *MockRepository {
	return &MockRepository{
		symbols: symbols,
		stored:  make(map[string]bool),
		latest:  make(map[int]time.Time),
	}
}

func (m *MockRepository) GetSymbols() ([]models.Symbol, error) {
	if m.symbolErr != nil {
		return nil, m.symbolErr
	}
	return m.symbols, nil
}

func (m *MockRepository) GetSymbolByTicker(ticker string) (*models.Symbol, error) {
	for _, s := range m.symbols {
		if strings.EqualFold(s.Ticker, ticker) {
			s := s
			return &s, nil
		}
	}
	return nil, fmt.Errorf("symbol not found: %s", ticker)
}

func (m *MockRepository) InsertDailyPrices(vendorID, symbolID int, rows []models.DailyPriceRow) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.InsertCalls = append(m.InsertCalls, insertCall{VendorID: vendorID, SymbolID: symbolID, Rows: rows})

	var n int64
	for _, r := range rows {
		key := fmt.Sprintf("%d:%s", symbolID, r.Date.Format(dateFormat))
		if !m.stored[key] {
			m.stored[key] = true
			n++
		}
		if r.Date.After(m.latest[symbolID]) {
			m.latest[symbolID] = r.Date
		}
	}
	return n, nil
}

func (m *MockRepository) LatestPriceDate(symbolID int) (time.Time, bool, error) {
	d, ok := m.latest[symbolID]
	return d, ok, nil
}

// MockFetcher records provider calls
type MockFetcher struct {
	history    map[string][]models.DailyPriceRow
	historyErr map[string]error
	batch      map[string][]models.DailyPriceRow
	batchErr   error

	HistoryCalls []string
	BatchCalls   [][]string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		history:    make(map[string][]models.DailyPriceRow),
		historyErr: make(map[string]error),
	}
}

func (f *MockFetcher) FetchSymbolHistory(_ context.Context, ticker string, _, _ time.Time) ([]models.DailyPriceRow, error) {
	f.HistoryCalls = append(f.HistoryCalls, ticker)
	if err := f.historyErr[ticker]; err != nil {
		return nil, err
	}
	return f.history[ticker], nil
}

func (f *MockFetcher) FetchManySymbols(_ context.Context, tickers []string, _, _ time.Time) (map[string][]models.DailyPriceRow, error) {
	f.BatchCalls = append(f.BatchCalls, tickers)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.batch, nil
}

type MockPublisher struct {
	Events []models.SyncEvent
}

func (p *MockPublisher) PublishPricesSynced(_ context.Context, event models.SyncEvent) error {
	p.Events = append(p.Events, event)
	return nil
}

type MockLocker struct {
	held bool
	// refresh fails after this many calls when positive
	loseAfter int
	Acquired  int
	Refreshed int
	Released  int
}

func (l *MockLocker) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.Acquired++
	return true, nil
}

func (l *MockLocker) Refresh(context.Context) (bool, error) {
	l.Refreshed++
	if l.loseAfter > 0 && l.Refreshed > l.loseAfter {
		return false, nil
	}
	return true, nil
}

func (l *MockLocker) Release(context.Context) error {
	l.Released++
	return nil
}
