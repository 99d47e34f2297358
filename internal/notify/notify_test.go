package notify

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDiagnosisMessage(t *testing.T) {
	m := DiagnosisMessage("Ana", "ana@example.com", "Fungal infection", "A skin condition.")
	if m.To != "ana@example.com" {
		t.Errorf("to = %q", m.To)
	}
	if m.Subject != "Medical Diagnosis Report - Fungal infection" {
		t.Errorf("subject = %q", m.Subject)
	}
	for _, want := range []string{"Hello Ana,", "Diagnosis: Fungal infection", "A skin condition.", "DISCLAIMER"} {
		if !strings.Contains(m.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHelpMessageReferenceIsStable(t *testing.T) {
	a := HelpMessage("Ana", "ana@example.com")
	b := HelpMessage("Ana", "ANA@example.com ")
	if a.Body != b.Body {
		t.Fatal("reference number should not depend on address case")
	}
	if !strings.Contains(a.Body, "Reference Number: #") {
		t.Fatalf("missing reference: %q", a.Body)
	}
}

type relaySession struct {
	auth string
	from string
	rcpt string
	data string
}

// fakeRelay answers one SMTP session on the server end of a pipe.
func fakeRelay(conn net.Conn, done chan<- relaySession) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	var sess relaySession
	tp.PrintfLine("220 localhost ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			done <- sess
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			tp.PrintfLine("250-localhost")
			tp.PrintfLine("250 AUTH PLAIN")
		case "AUTH":
			sess.auth = line
			tp.PrintfLine("235 2.7.0 accepted")
		case "MAIL":
			sess.from = line
			tp.PrintfLine("250 ok")
		case "RCPT":
			sess.rcpt = line
			tp.PrintfLine("250 ok")
		case "DATA":
			tp.PrintfLine("354 go ahead")
			data, _ := tp.ReadDotBytes()
			sess.data = string(data)
			tp.PrintfLine("250 queued")
		case "QUIT":
			tp.PrintfLine("221 bye")
			done <- sess
			return
		default:
			tp.PrintfLine("250 ok")
		}
	}
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Username: "bot@test", Password: "pw"})
	done := make(chan relaySession, 1)
	var gotAddr string
	s.dial = func(_ context.Context, _, addr string) (net.Conn, error) {
		gotAddr = addr
		client, server := net.Pipe()
		go fakeRelay(server, done)
		return client, nil
	}

	m := HelpMessage("Ana", "ana@example.com")
	if err := s.Send(context.Background(), m); err != nil {
		t.Fatalf("send: %v", err)
	}
	sess := <-done
	if gotAddr != "localhost:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if !strings.HasPrefix(sess.auth, "AUTH PLAIN") {
		t.Errorf("expected PLAIN auth with a username, got %q", sess.auth)
	}
	if sess.from != "MAIL FROM:<bot@test>" {
		t.Errorf("from = %q", sess.from)
	}
	if sess.rcpt != "RCPT TO:<ana@example.com>" {
		t.Errorf("rcpt = %q", sess.rcpt)
	}
	if !strings.Contains(sess.data, "Subject: "+m.Subject+"\n") {
		t.Errorf("missing subject header in %q", sess.data)
	}

	if err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}

	s.dial = func(context.Context, string, string) (net.Conn, error) { return nil, errors.New("relay down") }
	if err := s.Send(context.Background(), m); err == nil || !strings.Contains(err.Error(), "relay down") {
		t.Errorf("expected wrapped relay error, got %v", err)
	}
}

func TestSMTPSenderTimesOutOnSilentRelay(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Timeout: 50 * time.Millisecond})
	s.dial = func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		return client, nil
	}

	start := time.Now()
	err := s.Send(context.Background(), HelpMessage("Ana", "ana@example.com"))
	if err == nil {
		t.Fatal("expected an error from a relay that never greets")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("send blocked for %v", elapsed)
	}
}

func TestSMTPSenderHonoursCancel(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Timeout: time.Minute})
	s.dial = func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		return client, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	err := s.Send(ctx, HelpMessage("Ana", "ana@example.com"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{Logger: zerolog.New(&buf)}
	if err := s.Send(context.Background(), DiagnosisMessage("Ana", "ana@example.com", "GERD", "")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "ana@example.com") {
		t.Fatalf("expected recipient in log, got %q", buf.String())
	}
}
