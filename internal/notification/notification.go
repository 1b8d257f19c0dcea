package notification

import (
	"context"
	"log/slog"
)

const (
	// KindCompromiseAlert warns a wallet owner that an authorization was
	// attempted by a different verified identity: their key may be stolen.
	KindCompromiseAlert = "compromise_alert"
	// KindVaultFrozen informs the owner that the guardian froze their vault.
	KindVaultFrozen = "vault_frozen"
	// KindRescueExecuted informs the owner that frozen funds were moved to a
	// rescue address.
	KindRescueExecuted = "rescue_executed"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. Delivery
// reliability is the collaborator's concern, not ours.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
