package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer listens to the purchase.confirmed and holds.expired queues and
// appends one line per event to purchase.log and holds.log in Dir.
type Consumer struct {
	URL string
	Dir string
	Log *log.Logger
}

// NewConsumer returns a Consumer writing under dir.
func NewConsumer(url, dir string) *Consumer {
	return &Consumer{URL: url, Dir: dir, Log: log.New("queue")}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Dial and
// channel failures are retried with exponential backoff (capped at 30s) so
// the server keeps running while the broker is away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warnf("consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warnf("consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warnf("consumer: set QoS failed: %v", err)
	}

	purchases, err := c.subscribe(ch, PurchaseConfirmedQueue)
	if err != nil {
		return err
	}
	expirations, err := c.subscribe(ch, HoldsExpiredQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-purchases:
		case d, ok = <-expirations:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.Handle(d.RoutingKey, d.Body); err != nil {
			c.Log.Errorf("consumer: handle %s message failed: %v", d.RoutingKey, err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// Handle decodes a message received from queue and appends its log line.
func (c *Consumer) Handle(queue string, body []byte) error {
	switch queue {
	case PurchaseConfirmedQueue:
		var ev PurchaseConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.appendLine("purchase.log", formatPurchase(ev))
	case HoldsExpiredQueue:
		var ev HoldsExpiredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.appendLine("holds.log", formatExpired(ev))
	}
	return fmt.Errorf("unknown queue %q", queue)
}

func formatPurchase(ev PurchaseConfirmedEvent) string {
	seats := make([]string, 0, len(ev.Tickets))
	for _, t := range ev.Tickets {
		seats = append(seats, fmt.Sprintf("%s(%d->%d)", t.SeatNumber, t.FromStopID, t.ToStopID))
	}
	return fmt.Sprintf("[%s] Purchase confirmed | purchase_id=%d | holder_id=%d | trip_id=%d | total=%s | seats=[%s]\n",
		ev.ConfirmedAt.UTC().Format(time.RFC3339), ev.PurchaseID, ev.HolderID, ev.TripID, ev.Total, strings.Join(seats, ","))
}

func formatExpired(ev HoldsExpiredEvent) string {
	ids := make([]string, 0, len(ev.Holds))
	for _, h := range ev.Holds {
		ids = append(ids, fmt.Sprintf("%d:%s@%d", h.HoldID, h.SeatNumber, h.TripID))
	}
	return fmt.Sprintf("[%s] Holds expired | count=%d | holds=[%s]\n",
		ev.SweptAt.UTC().Format(time.RFC3339), len(ev.Holds), strings.Join(ids, ","))
}

func (c *Consumer) appendLine(name, line string) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
