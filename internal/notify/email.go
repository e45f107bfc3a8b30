package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogEmailSender writes outgoing mail to the log instead of an SMTP relay.
// The deployment has no mail gateway yet; everything that would be sent is
// visible in the service log.
type LogEmailSender struct {
	logger *zap.Logger
}

func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("outgoing email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
