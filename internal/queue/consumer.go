package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLogFile is the file under the consumer's directory that receives
// one line per event.
const AuditLogFile = "auth.log"

// Consumer drains AuthEventsQueue into Dir/auth.log.
type Consumer struct {
	URL string
	Dir string
	Log *slog.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err == nil {
			backoff = time.Second
			err = c.consumeLoop(ctx, conn, log)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("audit consumer disconnected", "err", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(AuthEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, AuthEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(c.Dir, d.Body); err != nil {
			log.Error("audit consumer: handle message failed", "err", err)
			_ = d.Nack(false, false) // malformed messages are dropped, not requeued
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(dir string, body []byte) error {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.Email == "" {
		return fmt.Errorf("incomplete event %q", ev.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev AuthEvent) string {
	line := fmt.Sprintf("[%s] %s | email=%s", ev.At.UTC().Format(time.RFC3339), ev.Type, ev.Email)
	if ev.Actor != "" {
		line += " | actor=" + ev.Actor
	}
	return line + " | id=" + ev.ID + "\n"
}
