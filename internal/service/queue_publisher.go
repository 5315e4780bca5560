// Package service adapts the booking engine's outbound ports to external
// systems.  The queue publisher delivers domain events to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	q "github.com/iliyamo/bus-seat-reservation/internal/queue"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns it along with a function closing the
// underlying connection.
type dialFunc func(url string) (amqpChannel, func() error, error)

func dialAMQP(url string) (amqpChannel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	return ch, conn.Close, nil
}

// Publisher implements booking.EventPublisher over RabbitMQ.  It keeps one
// connection open and redials on the next publish after a failure.
// Messages are persistent and routed through the default exchange to
// durable queues named after the event.
type Publisher struct {
	url  string
	dial dialFunc
	now  func() time.Time

	mu        sync.Mutex
	ch        amqpChannel
	closeConn func() error
	declared  map[string]bool
}

var _ booking.EventPublisher = (*Publisher)(nil)

// NewPublisher returns a Publisher for the broker at url.  The connection is
// opened lazily by the first publish.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dial: dialAMQP, now: func() time.Time { return time.Now().UTC() }}
}

// PublishPurchaseConfirmed publishes a PurchaseConfirmedEvent.
func (p *Publisher) PublishPurchaseConfirmed(ctx context.Context, pur model.Purchase, tickets []model.Ticket) error {
	ev := q.PurchaseConfirmedEvent{
		PurchaseID:  pur.ID,
		TripID:      pur.TripID,
		HolderID:    pur.HolderID,
		Total:       pur.Total.StringFixed(2),
		Tickets:     make([]q.TicketLine, 0, len(tickets)),
		ConfirmedAt: p.now(),
	}
	for _, t := range tickets {
		ev.Tickets = append(ev.Tickets, q.TicketLine{
			TicketID:   t.ID,
			SeatNumber: t.SeatNumber,
			FromStopID: t.FromStopID,
			ToStopID:   t.ToStopID,
			Price:      t.Price.StringFixed(2),
		})
	}
	return p.publish(ctx, q.PurchaseConfirmedQueue, ev)
}

// PublishHoldsExpired publishes a HoldsExpiredEvent.
func (p *Publisher) PublishHoldsExpired(ctx context.Context, holds []model.Hold) error {
	ev := q.HoldsExpiredEvent{Holds: make([]q.ExpiredHold, 0, len(holds)), SweptAt: p.now()}
	for _, h := range holds {
		ev.Holds = append(ev.Holds, q.ExpiredHold{
			HoldID:     h.ID,
			TripID:     h.TripID,
			SeatNumber: h.SeatNumber,
			HolderID:   h.HolderID,
			ExpiresAt:  h.ExpiresAt,
		})
	}
	return p.publish(ctx, q.HoldsExpiredQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		ch, closeConn, err := p.dial(p.url)
		if err != nil {
			return err
		}
		p.ch, p.closeConn, p.declared = ch, closeConn, map[string]bool{}
	}
	if !p.declared[queue] {
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			p.resetLocked()
			return fmt.Errorf("rabbitmq: queue declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    p.now(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("rabbitmq: publish %s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn, p.declared = nil, nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
