package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPService delivers plain text mail through one SMTP server.
type SMTPService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg Config) *SMTPService {
	return &SMTPService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPService) Send(_ context.Context, to, subject, body string) error {
	return s.dialer.DialAndSend(s.message(to, subject, body))
}

func (s *SMTPService) message(to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

// Sent is one message recorded by LogService.
type Sent struct {
	To      string
	Subject string
	Body    string
}

// LogService logs messages instead of sending them. It is used when SMTP is
// disabled.
type LogService struct {
	mu   sync.Mutex
	sent []Sent
}

func NewLogService() *LogService {
	return &LogService{}
}

func (s *LogService) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	s.sent = append(s.sent, Sent{To: to, Subject: subject, Body: body})
	s.mu.Unlock()
	log.Info().Str("to", to).Str("subject", subject).Msg("email not sent, smtp disabled")
	return nil
}

func (s *LogService) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}
