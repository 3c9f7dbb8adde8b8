package mailer

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// plainServer speaks just enough SMTP to greet and answer EHLO without STARTTLS.
func plainServer(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		r := bufio.NewReader(conn)
		conn.Write([]byte("220 localhost ESMTP test\r\n"))
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				break
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				conn.Write([]byte("250-localhost\r\n250 8BITMIME\r\n"))
			case cmd == "QUIT":
				conn.Write([]byte("221 bye\r\n"))
				return
			default:
				conn.Write([]byte("502 not implemented\r\n"))
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func testMessage() Message {
	return Message{
		From:    "bot@example.org",
		To:      []string{"hr@example.org"},
		Subject: "Photo for department: Sales | Jane Doe",
	}
}

func TestSendFailsWithoutStartTLS(t *testing.T) {
	host, port := plainServer(t)
	m := New(Config{Host: host, Port: port, Username: "bot", Password: "secret", Timeout: 5 * time.Second})

	err := m.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected an error from a relay without STARTTLS")
	}
	if !strings.Contains(err.Error(), "starttls") {
		t.Fatalf("error %q should come from the STARTTLS step", err)
	}
}

func TestSendDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := New(Config{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	err = m.Send(context.Background(), testMessage())
	if err == nil || !strings.Contains(err.Error(), "dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestSendNotConfigured(t *testing.T) {
	err := New(Config{}).Send(context.Background(), testMessage())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAddr(t *testing.T) {
	m := New(Config{Host: "smtp.example.org", Port: 587})
	if got, want := m.Addr(), "smtp.example.org:"+strconv.Itoa(587); got != want {
		t.Fatalf("Addr = %q, want %q", got, want)
	}
}
