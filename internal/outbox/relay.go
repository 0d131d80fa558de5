package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Relay polls the outbox and publishes pending records to Kafka.
// Delivery is at-least-once: a record is marked sent only after the broker
// acknowledged it, so consumers must dedupe on event_id.
type Relay struct {
	pool     *pgxpool.Pool
	writer   *kafka.Writer
	interval time.Duration
	batch    int
}

func NewRelay(pool *pgxpool.Pool, brokers []string, interval time.Duration) *Relay {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
	}

	return &Relay{
		pool:     pool,
		writer:   writer,
		interval: interval,
		batch:    100,
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.writer.Close()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				log.WithError(err).Warn("outbox drain failed")
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	records, err := FetchPending(ctx, r.pool, r.batch)
	if err != nil {
		return err
	}

	for _, rec := range records {
		msg := kafka.Message{
			Topic: rec.Topic,
			Key:   []byte(rec.Key),
			Value: rec.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID)},
			},
		}

		if err := r.writer.WriteMessages(ctx, msg); err != nil {
			// leave the record pending, the next tick retries it
			return err
		}

		if err := MarkSent(ctx, r.pool, rec.ID); err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"event_id": rec.EventID,
			"topic":    rec.Topic,
		}).Debug("outbox record published")
	}

	return nil
}
