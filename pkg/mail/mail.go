package mail

import (
	"context"
	"fmt"
	netmail "net/mail"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/pkg/config"
)

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single outbound email.
type Message struct {
	To          netmail.Address
	Subject     string
	TextContent string
	HTMLContent string
	Attachments []Attachment
}

// Validate checks the message is deliverable.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To.Address) == "" {
		return fmt.Errorf("recipient address required")
	}
	if _, err := netmail.ParseAddress(m.To.Address); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To.Address, err)
	}
	if m.TextContent == "" && m.HTMLContent == "" && len(m.Attachments) == 0 {
		return fmt.Errorf("message has no content")
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks the transport configured by MAIL_DRIVER.
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogSender(logger), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY required for sendgrid mail driver")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message envelope.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, fmt.Sprintf("%s (%d bytes)", a.Filename, len(a.Content)))
	}
	s.logger.Info("mail delivered to log",
		zap.String("to", msg.To.String()),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names),
	)
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages handled so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
