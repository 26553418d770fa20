package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when SMTP credentials are absent. Send fails
// with it before any connection is attempted.
var ErrNotConfigured = errors.New("email credentials are not configured")

// ErrSendFailed is the generic error surfaced to callers when delivery
// fails. Diagnostic detail is logged, never returned.
var ErrSendFailed = errors.New("email could not be sent")

// Sender delivers a transactional email and returns a message identifier.
type Sender interface {
	Send(to, subject, html string) (string, error)
}

// SMTP sends mail over an implicit-TLS connection to a fixed host/port.
// The zero value is unusable; populate Host, Port and the credentials.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	Timeout  time.Duration
	Log      zerolog.Logger
}

// Configured reports whether credentials are present.
func (s *SMTP) Configured() bool {
	return s != nil && s.Username != "" && s.Password != ""
}

// Verify performs a one-time connectivity and authentication probe. Its
// outcome is observational: callers log it and carry on either way.
func (s *SMTP) Verify() error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	client, err := s.dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Quit() }()
	return s.auth(client)
}

// Send delivers one HTML email. No retry, no queueing: a failed send is
// logged and surfaced to the caller as ErrSendFailed.
func (s *SMTP) Send(to, subject, html string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.Host)
	if err := s.deliver(to, subject, html, messageID); err != nil {
		s.logFailure(err, to)
		return "", ErrSendFailed
	}
	s.Log.Info().Str("message_id", messageID).Str("to", to).Msg("email sent")
	return messageID, nil
}

func (s *SMTP) deliver(to, subject, html, messageID string) error {
	client, err := s.dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Quit() }()

	if err := s.auth(client); err != nil {
		return err
	}
	if err := client.Mail(s.Username); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	msg := "From: " + fmt.Sprintf("%q <%s>", s.FromName, s.Username) + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Message-ID: " + messageID + "\r\n" +
		"Date: " + time.Now().Format(time.RFC1123Z) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		html
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// dial opens the implicit-TLS connection (port 465 style; STARTTLS on 587
// is not used here).
func (s *SMTP) dial() (*smtp.Client, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

func (s *SMTP) auth(client *smtp.Client) error {
	return client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host))
}

func (s *SMTP) logFailure(err error, to string) {
	evt := s.Log.Error().Str("to", to)
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		evt = evt.Int("response_code", tpErr.Code).Str("response", tpErr.Msg)
		if tpErr.Code == 535 {
			s.Log.Error().Msg("smtp rejected credentials: check the App Password, 2-step verification and account security alerts")
		}
	}
	evt.Err(err).Msg("email send failed")
}

// Memory is a test double that records sent messages.
type Memory struct {
	Outbox []Message
	Err    error
}

// Message is one email captured by Memory.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Send records the message and synthesises an identifier.
func (m *Memory) Send(to, subject, html string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Outbox = append(m.Outbox, Message{To: to, Subject: subject, HTML: html})
	return fmt.Sprintf("<memory-%d>", len(m.Outbox)), nil
}

// Nop implements Sender without doing anything.
type Nop struct{}

// Send implements Sender.
func (Nop) Send(string, string, string) (string, error) { return "", nil }
