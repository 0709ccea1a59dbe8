package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTPChallenge indicates a phone verification code delivery.
	KindOTPChallenge = "otp_challenge"
)

// Message describes an outbound notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to subscribers, normally over the SMS
// gateway. The directory uses it to hand verification codes to the user.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured log instead of
// sending them. Used in development, where seeing the OTP code in the log is
// the point.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
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
