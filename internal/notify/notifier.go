// Package notify delivers order summaries to shop staff. Delivery is best
// effort: Send reports success as a bool and never returns an error.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// Sender is what checkout depends on.
type Sender interface {
	Send(ctx context.Context, message string) bool
}

// Transport is a single delivery channel.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, message string) error
}

type Config struct {
	Timeout time.Duration

	TelegramToken  string
	TelegramChatID string
	TelegramAPIURL string

	SendGridAPIKey string
	SendGridHost   string
	EmailSender    string
	AdminEmails    []string
}

type guardedTransport struct {
	t  Transport
	cb *gobreaker.CircuitBreaker[struct{}]
}

type Notifier struct {
	transports []guardedTransport
	timeout    time.Duration
	logger     *zap.Logger
}

// New builds a Notifier from whichever channels cfg fully configures.
// With nothing configured, Send always returns false.
func New(cfg Config, logger *zap.Logger) *Notifier {
	var ts []Transport
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		ts = append(ts, NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramAPIURL))
	}
	if cfg.SendGridAPIKey != "" && cfg.EmailSender != "" && len(cfg.AdminEmails) > 0 {
		ts = append(ts, NewEmail(cfg.SendGridAPIKey, cfg.SendGridHost, cfg.EmailSender, cfg.AdminEmails))
	}
	return NewWithTransports(cfg.Timeout, logger, ts...)
}

func NewWithTransports(timeout time.Duration, logger *zap.Logger, ts ...Transport) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{timeout: timeout, logger: logger}
	for _, t := range ts {
		n.transports = append(n.transports, guardedTransport{t: t, cb: newBreaker(t.Name(), logger)})
	}
	return n
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notify-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notification breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// Send tries every configured channel and reports whether at least one
// delivered the message.
func (n *Notifier) Send(ctx context.Context, message string) bool {
	if len(n.transports) == 0 {
		n.logger.Warn("notification skipped: no channel configured")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	delivered := false
	for _, g := range n.transports {
		if err := n.deliver(ctx, g, message); err != nil {
			n.logger.Warn("notification failed", zap.String("channel", g.t.Name()), zap.Error(err))
			continue
		}
		delivered = true
	}
	return delivered
}

func (n *Notifier) deliver(ctx context.Context, g guardedTransport, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s transport: %v", g.t.Name(), r)
		}
	}()
	_, err = g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, g.t.Deliver(ctx, message)
	})
	return err
}
