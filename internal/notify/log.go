package notify

import (
	"context"
	"errors"
	"log"
)

// Log writes messages to a logger. It is the fallback when Telegram is not configured.
type Log struct {
	Logger *log.Logger
}

func (l Log) Send(_ context.Context, text string) error {
	if l.Logger == nil {
		log.Printf("[NOTIFY] %s", text)
		return nil
	}
	l.Logger.Printf("[NOTIFY] %s", text)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromEnv returns Telegram plus a log copy when configured, otherwise just the log.
func FromEnv(l *log.Logger) Notifier {
	tg, err := NewTelegramFromEnv()
	if err != nil {
		if l != nil {
			l.Printf("[NOTIFY] telegram disabled: %v", err)
		}
		return Log{Logger: l}
	}
	return Multi{Log{Logger: l}, tg}
}
