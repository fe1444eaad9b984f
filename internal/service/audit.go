// Package service publishes auth audit events to RabbitMQ.  Publishing is
// best effort: a broker outage never fails an authentication call.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/22maksim/task-manager/internal/queue"
)

// Publisher delivers one event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// AMQPPublisher opens a connection per event.  Auth events are rare
// enough that a pooled channel is not worth its reconnect handling.
type AMQPPublisher struct {
	URL         string
	DialTimeout time.Duration
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AuthEvent) error {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.AuthEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return ch.PublishWithContext(ctx, "", queue.AuthEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.At,
		Body:         body,
	})
}

// Auditor publishes events in the background.  A nil *Auditor drops
// every event.
type Auditor struct {
	pub     Publisher
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAuditor(pub Publisher, log *slog.Logger) *Auditor {
	if log == nil {
		log = slog.Default()
	}
	return &Auditor{pub: pub, log: log, timeout: 5 * time.Second}
}

// Record publishes an event of typ about email.  It does not block.
func (a *Auditor) Record(typ queue.EventType, email, actor string) {
	if a == nil || a.pub == nil {
		return
	}
	ev := queue.NewAuthEvent(typ, email, actor)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.pub.Publish(ctx, ev); err != nil {
			a.log.Warn("audit event dropped", "type", string(ev.Type), "id", ev.ID, "err", err)
		}
	}()
}

// Close waits for in-flight publishes.
func (a *Auditor) Close() {
	if a != nil {
		a.wg.Wait()
	}
}
