// Package pricesync drives a daily price sync run: it resolves the date
// range, picks the batch or per-symbol fetch strategy and inserts results.
package pricesync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/price-sync/internal/dates"
	"github.com/trogers1052/price-sync/internal/models"
)

const (
	defaultShortRangeDays = 30
	defaultLookbackDays   = 30
	dateFormat            = "2006-01-02"
)

// Sync modes reported in Result.Mode
const (
	ModeUpToDate  = "up_to_date"
	ModeBatch     = "batch"
	ModePerSymbol = "per_symbol"
	ModeBackfill  = "backfill"
)

// ErrSyncInProgress is returned when another run holds the sync lock
var ErrSyncInProgress = errors.New("price sync already in progress")

// SymbolRepository reads the symbol directory
type SymbolRepository interface {
	GetSymbols() ([]models.Symbol, error)
	GetSymbolByTicker(ticker string) (*models.Symbol, error)
}

// PriceRepository persists daily prices
type PriceRepository interface {
	InsertDailyPrices(vendorID, symbolID int, rows []models.DailyPriceRow) (int64, error)
	LatestPriceDate(symbolID int) (time.Time, bool, error)
}

// Fetcher retrieves daily history from the data provider
type Fetcher interface {
	FetchSymbolHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.DailyPriceRow, error)
	FetchManySymbols(ctx context.Context, tickers []string, start, end time.Time) (map[string][]models.DailyPriceRow, error)
}

// Publisher announces finished runs
type Publisher interface {
	PublishPricesSynced(ctx context.Context, event models.SyncEvent) error
}

// Locker guards against concurrent runs across processes. Refresh extends
// a held lock and reports false once it has been lost.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ErrLockLost is returned when the run lock expired or was taken over mid-run
var ErrLockLost = errors.New("price sync lock lost")

// Result summarizes one run
type Result struct {
	Mode            string    `json:"mode"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	SymbolsTotal    int       `json:"symbols_total"`
	SymbolsWithData int       `json:"symbols_with_data"`
	SymbolsFailed   []string  `json:"symbols_failed,omitempty"`
	RowsInserted    int64     `json:"rows_inserted"`
}

// Syncer runs price syncs. Runs are serialized.
type Syncer struct {
	symbols        SymbolRepository
	prices         PriceRepository
	fetcher        Fetcher
	publisher      Publisher
	locker         Locker
	log            logrus.FieldLogger
	vendorID       int
	shortRangeDays int
	backfillDays   int
	now            func() time.Time

	mu sync.Mutex
}

// New creates a Syncer with the given options applied
func New(symbols SymbolRepository, prices PriceRepository, fetcher Fetcher, opts ...Option) *Syncer {
	s := &Syncer{
		symbols:        symbols,
		prices:         prices,
		fetcher:        fetcher,
		log:            logrus.StandardLogger(),
		vendorID:       1,
		shortRangeDays: defaultShortRangeDays,
		backfillDays:   365,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Option configures a Syncer
type Option func(*Syncer)

// WithVendorID sets the data vendor id stamped on inserted rows
func WithVendorID(id int) Option {
	return func(s *Syncer) { s.vendorID = id }
}

// WithShortRangeDays sets the longest range, in days, fetched with one batch query
func WithShortRangeDays(days int) Option {
	return func(s *Syncer) {
		if days > 0 {
			s.shortRangeDays = days
		}
	}
}

// WithBackfillDays sets how far back a newly added symbol is backfilled
func WithBackfillDays(days int) Option {
	return func(s *Syncer) {
		if days > 0 {
			s.backfillDays = days
		}
	}
}

// WithPublisher publishes a sync event after every run
func WithPublisher(p Publisher) Option {
	return func(s *Syncer) { s.publisher = p }
}

// WithLocker adds a cross-process run lock
func WithLocker(l Locker) Option {
	return func(s *Syncer) { s.locker = l }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Syncer) { s.log = l }
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// ResolveRange turns optional start/end strings into dates. Empty start
// means 30 days ago, empty end means now.
func (s *Syncer) ResolveRange(start, end string) (time.Time, time.Time, error) {
	now := s.now()

	startDate := now.AddDate(0, 0, -defaultLookbackDays)
	if start != "" {
		var err error
		if startDate, err = dates.Parse(start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
	}

	endDate := now
	if end != "" {
		var err error
		if endDate, err = dates.Parse(end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
	}

	return startDate, endDate, nil
}

// InsertDaily syncs daily prices for every symbol in the directory over
// [start, end]. Empty strings select the defaults of ResolveRange.
// Provider failures only cost the affected symbols their data; date
// parsing and database errors abort the run.
func (s *Syncer) InsertDaily(ctx context.Context, start, end string) (*Result, error) {
	startDate, endDate, err := s.ResolveRange(start, end)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := &Result{Start: startDate, End: endDate}
	s.log.WithFields(logrus.Fields{
		"start": startDate.Format(dateFormat),
		"end":   endDate.Format(dateFormat),
	}).Info("inserting daily price data")

	rangeDays := int(endDate.Sub(startDate).Hours() / 24)
	switch {
	case rangeDays <= 0:
		res.Mode = ModeUpToDate
		s.log.Info("daily_price already up-to-date")
		return res, nil
	case rangeDays <= s.shortRangeDays:
		res.Mode = ModeBatch
		err = s.syncBatch(ctx, startDate, endDate, res)
	default:
		res.Mode = ModePerSymbol
		err = s.syncPerSymbol(ctx, startDate, endDate, res)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"mode":              res.Mode,
		"symbols":           res.SymbolsTotal,
		"symbols_with_data": res.SymbolsWithData,
		"symbols_failed":    len(res.SymbolsFailed),
		"rows":              res.RowsInserted,
	}).Info("daily price sync finished")

	s.publish(ctx, res)
	return res, nil
}

func (s *Syncer) syncBatch(ctx context.Context, start, end time.Time, res *Result) error {
	symbols, err := s.symbols.GetSymbols()
	if err != nil {
		return err
	}
	res.SymbolsTotal = len(symbols)
	if len(symbols) == 0 {
		return nil
	}

	tickers := make([]string, len(symbols))
	tickerToID := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		tickers[i] = sym.Ticker
		tickerToID[strings.ToUpper(sym.Ticker)] = sym.ID
	}

	data, err := s.fetcher.FetchManySymbols(ctx, tickers, start, end)
	if err != nil {
		s.log.WithError(err).Warn("batch fetch returned no data, skipping insert")
		return nil
	}

	// directory order keeps inserts deterministic
	for _, sym := range symbols {
		rows, ok := data[strings.ToUpper(sym.Ticker)]
		if !ok {
			continue
		}
		if err := s.insert(sym, rows, res); err != nil {
			return err
		}
	}

	for ticker := range data {
		if _, ok := tickerToID[strings.ToUpper(ticker)]; !ok {
			s.log.WithField("ticker", ticker).Warn("provider returned unknown ticker, skipping")
		}
	}
	return nil
}

func (s *Syncer) syncPerSymbol(ctx context.Context, start, end time.Time, res *Result) error {
	symbols, err := s.symbols.GetSymbols()
	if err != nil {
		return err
	}
	res.SymbolsTotal = len(symbols)

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.refreshLock(ctx); err != nil {
			return err
		}
		if err := s.syncSymbol(ctx, sym, start, end, res); err != nil {
			return err
		}
	}
	return nil
}

// syncSymbol fetches and inserts one symbol; fetch failures are logged
// and recorded but never returned.
func (s *Syncer) syncSymbol(ctx context.Context, sym models.Symbol, start, end time.Time, res *Result) error {
	log := s.log.WithField("ticker", sym.Ticker)
	log.Info("adding data")

	rows, err := s.fetcher.FetchSymbolHistory(ctx, sym.Ticker, start, end)
	if err != nil {
		log.WithError(err).Warn("fetch failed, skipping symbol")
		res.SymbolsFailed = append(res.SymbolsFailed, sym.Ticker)
		return nil
	}
	return s.insert(sym, rows, res)
}

func (s *Syncer) insert(sym models.Symbol, rows []models.DailyPriceRow, res *Result) error {
	n, err := s.prices.InsertDailyPrices(s.vendorID, sym.ID, rows)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		res.SymbolsWithData++
	}
	res.RowsInserted += n

	s.log.WithFields(logrus.Fields{
		"ticker":    sym.Ticker,
		"symbol_id": sym.ID,
		"rows":      len(rows),
		"inserted":  n,
	}).Debug("inserted daily prices")
	return nil
}

// BackfillSymbol loads history for a single symbol, by default over the
// configured backfill window ending today. Without an explicit since, a
// symbol that already has prices resumes the day after its latest stored
// date. It always uses the per-symbol endpoint.
func (s *Syncer) BackfillSymbol(ctx context.Context, ticker, since string) (*Result, error) {
	now := s.now()
	start := now.AddDate(0, 0, -s.backfillDays)
	if since != "" {
		var err error
		if start, err = dates.Parse(since); err != nil {
			return nil, fmt.Errorf("invalid backfill start date: %w", err)
		}
	}

	sym, err := s.symbols.GetSymbolByTicker(ticker)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if since == "" {
		latest, ok, err := s.prices.LatestPriceDate(sym.ID)
		if err != nil {
			return nil, err
		}
		if next := latest.AddDate(0, 0, 1); ok && next.After(start) {
			start = next
		}
	}

	res := &Result{Mode: ModeBackfill, Start: start, End: now, SymbolsTotal: 1}
	log := s.log.WithFields(logrus.Fields{
		"ticker": sym.Ticker,
		"start":  start.Format(dateFormat),
	})
	if start.After(now) {
		log.Info("symbol already up-to-date, nothing to backfill")
		return res, nil
	}

	if err := s.syncSymbol(ctx, *sym, start, now, res); err != nil {
		return nil, err
	}

	log.WithField("rows", res.RowsInserted).Info("symbol backfill finished")

	s.publish(ctx, res)
	return res, nil
}

func (s *Syncer) lock(ctx context.Context) (func(), error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	if s.locker == nil {
		return s.mu.Unlock, nil
	}

	ok, err := s.locker.Acquire(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}

	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.WithError(err).Warn("failed to release sync lock")
		}
		s.mu.Unlock()
	}, nil
}

// refreshLock extends the cross-process lock so long per-symbol runs do
// not outlive its TTL.
func (s *Syncer) refreshLock(ctx context.Context) error {
	if s.locker == nil {
		return nil
	}
	ok, err := s.locker.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh sync lock: %w", err)
	}
	if !ok {
		return ErrLockLost
	}
	return nil
}

func (s *Syncer) publish(ctx context.Context, res *Result) {
	if s.publisher == nil {
		return
	}

	event := models.SyncEvent{
		EventType:       models.SyncEventPricesSynced,
		Mode:            res.Mode,
		Start:           res.Start.Format(dateFormat),
		End:             res.End.Format(dateFormat),
		SymbolsTotal:    res.SymbolsTotal,
		SymbolsWithData: res.SymbolsWithData,
		SymbolsFailed:   res.SymbolsFailed,
		RowsInserted:    res.RowsInserted,
		Timestamp:       s.now().UTC(),
	}
	if err := s.publisher.PublishPricesSynced(ctx, event); err != nil {
		s.log.WithError(err).Warn("failed to publish sync event")
	}
}
