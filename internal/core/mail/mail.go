// Package mail 发送纯文本邮件。未配置 SMTP 时只写日志。
package mail

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"natours/internal/core/config"
)

type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

func New(cfg config.Mail, l *zap.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{L: l}
	}
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := build(s.from, m)
	return s.dialer.DialAndSend(msg)
}

func build(from string, m Message) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetAddressHeader("To", m.To, m.Name)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	return msg
}

// LogSender 开发环境用
type LogSender struct{ L *zap.Logger }

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.L.Info("mail (not delivered)",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("text", m.Text),
	)
	return nil
}
