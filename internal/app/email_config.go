package app

import (
	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// DispatcherOptions converts the dispatcher block into mail.Dispatcher options.
func (c EmailConfig) DispatcherOptions(log *zap.Logger, hook func(mail.Outcome)) []mail.DispatcherOption {
	return []mail.DispatcherOption{
		mail.WithWorkers(c.Dispatcher.Workers),
		mail.WithQueueSize(c.Dispatcher.QueueSize),
		mail.WithSendTimeout(c.Dispatcher.SendTimeout),
		mail.WithLogger(log),
		mail.WithOutcomeHook(hook),
	}
}
