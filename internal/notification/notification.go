package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTP carries a one-time code for signup, password, or email flows.
	KindOTP = "otp"
	// KindTransactionVerified tells a user their deposit/withdrawal cleared.
	KindTransactionVerified = "transaction_verified"
	// KindTransactionReversed tells a user a verification was undone.
	KindTransactionReversed = "transaction_reversed"
	// KindAccountChanged confirms a password or email update.
	KindAccountChanged = "account_changed"
)

// Message describes an outbound notification.
type Message struct {
	Kind      string
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers notifications out of band. Delivery is best effort and
// happens after the triggering transition commits; a failed send must never
// roll back ledger state.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured log. It is the
// default backend in development and tests.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"recipient", message.Recipient,
		"subject", message.Subject,
		"body", message.Body,
	)
	return nil
}

// Dispatch sends the message on its own goroutine, detached from the caller's
// cancellation, and logs failures. Used after a transition commits.
func Dispatch(n Notifier, logger *slog.Logger, msg Message) {
	if n == nil {
		return
	}
	go func() {
		if err := n.Send(context.Background(), msg); err != nil && logger != nil {
			logger.Warn("notification send failed", "kind", msg.Kind, "recipient", msg.Recipient, "error", err)
		}
	}()
}
