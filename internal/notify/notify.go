// Package notify delivers plain-text email notifications to patients.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. Failures are reported to the caller, which
// decides whether they abort the surrounding operation.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("message has no recipient")

const signature = "Best regards,\nMedical Diagnosis System Team\n"

// DiagnosisMessage reports a self-diagnosis prediction.
func DiagnosisMessage(name, email, disease, description string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("AI-Predicted Diagnosis Report\n")
	b.WriteString("===================================\n\n")
	fmt.Fprintf(&b, "Diagnosis: %s\n\n", disease)
	if description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n\n", description)
	}
	b.WriteString("IMPORTANT DISCLAIMER:\n")
	b.WriteString("This is an AI-assisted preliminary diagnosis. The results might not be 100% accurate.\n")
	b.WriteString("Please consult with a qualified healthcare professional for proper evaluation and treatment.\n\n")
	b.WriteString("If you're experiencing severe symptoms, seek immediate medical attention.\n\n")
	b.WriteString(signature)
	return Message{To: email, Subject: "Medical Diagnosis Report - " + disease, Body: b.String()}
}

// HelpMessage acknowledges a help desk question.
func HelpMessage(name, email string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("Your question has been received successfully. ")
	b.WriteString("Our support team will review your inquiry and respond within 48 hours.\n\n")
	fmt.Fprintf(&b, "Reference Number: #%05d\n\n", reference(email))
	b.WriteString(signature)
	return Message{To: email, Subject: "Help Request Received - Medical Diagnosis System", Body: b.String()}
}

// ReplyMessage forwards an admin response to the person who asked.
func ReplyMessage(name, email, question, response string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your Question:\n%s\n\n", question)
	fmt.Fprintf(&b, "Our Response:\n%s\n\n", response)
	b.WriteString("If this didn't fully address your concern, please reach out again.\n\n")
	b.WriteString(signature)
	return Message{To: email, Subject: "Your Question Has Been Answered - Medical Diagnosis System", Body: b.String()}
}

// reference is a stable five digit ticket number for an address.
func reference(email string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return h.Sum32() % 100000
}

// SMTPConfig addresses an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds one delivery, dial included. Zero means 10s.
	Timeout time.Duration
}

// SMTPSender sends through an SMTP relay, upgrading with STARTTLS when the
// relay offers it and using PLAIN auth when a username is configured.
type SMTPSender struct {
	cfg  SMTPConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg, dial: (&net.Dialer{}).DialContext}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return ErrNoRecipient
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.deliver(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, m Message) error {
	conn, err := s.dial(ctx, "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("relay does not support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(m.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.render(m)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPSender) render(m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(_ context.Context, m Message) error {
	if m.To == "" {
		return ErrNoRecipient
	}
	s.Logger.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("body_bytes", len(m.Body)).
		Msg("email not delivered: no mail server configured")
	return nil
}
