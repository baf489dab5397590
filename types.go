package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config exposes the knobs the engines need. Hosts implement it over their
// own configuration source.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetResetTokenWindow() string
	GetMinPasswordLength() int
	GetDefaultPageSize() int
	GetMaxPageSize() int
}

// ResetNotifier delivers a password reset token to the user. Delivery is a
// fire-and-forget side effect; failures are logged, never returned to the
// lifecycle operation.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type logNotifier struct {
	logger Logger
}

// NewLogNotifier returns a ResetNotifier that only logs. Hosts swap in a
// real mailer; the lifecycle handlers do not care which one they get.
func NewLogNotifier(logger Logger) ResetNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return logNotifier{logger: logger}
}

func (n logNotifier) NotifyPasswordReset(_ context.Context, email, token string) error {
	n.logger.Info("password reset notification", "email", email, "link", "/reset-password/"+token)
	return nil
}
