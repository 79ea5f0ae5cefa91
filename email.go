package shieldauth

import "log/slog"

// EmailSender allows applications to provide their own email transport.
// Implementations should absorb transient transport detail and return an
// error only when the message could not be handed off at all.
type EmailSender interface {
	SendVerificationEmail(to, name, verificationLink, context string) error
	SendPasswordResetEmail(to, name, resetLink string) error
}

// ConsoleEmailSender is a development implementation that logs emails
// instead of sending them. Links contain secret tokens, so it logs only
// the recipient and context, never the link.
type ConsoleEmailSender struct {
	Logger *slog.Logger
}

func (c *ConsoleEmailSender) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *ConsoleEmailSender) SendVerificationEmail(to, name, verificationLink, context string) error {
	c.logger().Info("email: verification", "to", to, "name", name, "context", context)
	return nil
}

func (c *ConsoleEmailSender) SendPasswordResetEmail(to, name, resetLink string) error {
	c.logger().Info("email: password reset", "to", to, "name", name)
	return nil
}
