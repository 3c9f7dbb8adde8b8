package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/m3rciful/photodesk/core/logger"
)

// ErrNotConfigured is returned by Send when no relay host is set.
var ErrNotConfigured = errors.New("mailer: not configured")

const (
	defaultDialTimeout = 30 * time.Second
	defaultTimeout     = 60 * time.Second
)

// Config describes the SMTP relay. STARTTLS and AUTH PLAIN are always used.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	DialTimeout time.Duration
	// Timeout bounds the SMTP conversation after connect.
	Timeout time.Duration
	// TLS overrides the STARTTLS client config. ServerName defaults to Host.
	TLS *tls.Config
}

// Mailer submits messages to a single relay.
type Mailer struct {
	cfg Config
}

// New returns a Mailer for cfg.
func New(cfg Config) *Mailer {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Mailer{cfg: cfg}
}

// Addr returns the relay address in host:port form.
func (m *Mailer) Addr() string {
	return net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
}

// Send composes msg and submits it: connect, STARTTLS, AUTH, MAIL/RCPT/DATA, QUIT.
func (m *Mailer) Send(ctx context.Context, msg Message) (err error) {
	if m.cfg.Host == "" || m.cfg.Port == 0 {
		return ErrNotConfigured
	}
	start := time.Now()
	defer func() {
		level := slog.LevelInfo
		event := "mail.sent"
		if err != nil {
			level = slog.LevelWarn
			event = "mail.failed"
		}
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("smtp_host", m.cfg.Host),
			slog.Int("smtp_port", m.cfg.Port),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
		}
		logger.LogEvent(ctx, logger.Mail, level, event, attrs...)
	}()

	var buf bytes.Buffer
	if err := Compose(&buf, msg); err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.Addr())
	if err != nil {
		return fmt.Errorf("mailer: dial %s: %w", m.Addr(), err)
	}
	if err := conn.SetDeadline(time.Now().Add(m.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("mailer: set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClientStartTLS(conn, m.tlsConfig())
	if err != nil {
		conn.Close()
		return fmt.Errorf("mailer: starttls: %w", err)
	}
	defer c.Close()

	user := m.cfg.Username
	if user == "" {
		user = msg.From
	}
	if err := c.Auth(sasl.NewPlainClient("", user, m.cfg.Password)); err != nil {
		return fmt.Errorf("mailer: auth: %w", err)
	}
	if err := c.SendMail(msg.From, msg.To, &buf); err != nil {
		return fmt.Errorf("mailer: submit: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("mailer: quit: %w", err)
	}
	return nil
}

func (m *Mailer) tlsConfig() *tls.Config {
	if m.cfg.TLS != nil {
		cfg := m.cfg.TLS.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = m.cfg.Host
		}
		return cfg
	}
	return &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
}
