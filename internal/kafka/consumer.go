package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/price-sync/internal/models"
	"github.com/trogers1052/price-sync/internal/pricesync"
)

// Backfiller loads history for a newly listed symbol
type Backfiller interface {
	BackfillSymbol(ctx context.Context, ticker, since string) (*pricesync.Result, error)
}

// Consumer handles symbol events from the symbol management process.
// Each SYMBOL_ADDED event triggers a history backfill for that ticker.
type Consumer struct {
	reader     *kafka.Reader
	backfiller Backfiller
	log        logrus.FieldLogger
	retryDelay time.Duration
}

// NewConsumer creates a new Kafka consumer for symbol events
func NewConsumer(brokers []string, topic, groupID string, backfiller Backfiller, log logrus.FieldLogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:     reader,
		backfiller: backfiller,
		log:        log,
		retryDelay: 30 * time.Second,
	}
}

// Start begins consuming messages from Kafka until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.WithField("topic", c.reader.Config().Topic).Info("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info("kafka consumer shutting down")
					return c.reader.Close()
				}
				c.log.WithError(err).Error("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.WithError(err).WithField("offset", msg.Offset).Error("error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.log.WithFields(logrus.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"key":       string(msg.Key),
	}).Debug("received message")

	var event models.SymbolEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal symbol event: %w", err)
	}

	if event.EventType != models.SymbolEventAdded {
		c.log.WithField("event_type", event.EventType).Debug("ignoring event")
		return nil
	}

	ticker := strings.TrimSpace(event.Ticker)
	if ticker == "" {
		return errors.New("symbol event without ticker")
	}

	// the run lock is shared with scheduled syncs; wait for them instead
	// of dropping the backfill
	for {
		res, err := c.backfiller.BackfillSymbol(ctx, ticker, event.Since)
		if errors.Is(err, pricesync.ErrSyncInProgress) {
			c.log.WithField("ticker", ticker).Info("sync in progress, retrying backfill later")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
				continue
			}
		}
		if err != nil {
			return fmt.Errorf("failed to backfill %s: %w", ticker, err)
		}

		c.log.WithFields(logrus.Fields{
			"ticker": ticker,
			"rows":   res.RowsInserted,
		}).Info("backfilled new symbol")
		return nil
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
