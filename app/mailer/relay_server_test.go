package mailer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// recordedMail is what the test relay saw for one submission.
type recordedMail struct {
	username, password string
	from               string
	to                 []string
	data               []byte
	tls                bool
}

type relayBackend struct {
	mu   sync.Mutex
	mail recordedMail
	done chan struct{}
}

func (b *relayBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &relaySession{backend: b, conn: c}, nil
}

type relaySession struct {
	backend *relayBackend
	conn    *smtp.Conn
	authed  bool
}

func (s *relaySession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *relaySession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != "bot@example.org" || password != "secret" {
			return errors.New("invalid credentials")
		}
		s.backend.mu.Lock()
		s.backend.mail.username, s.backend.mail.password = username, password
		_, s.backend.mail.tls = s.conn.TLSConnectionState()
		s.backend.mu.Unlock()
		s.authed = true
		return nil
	}), nil
}

func (s *relaySession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return smtp.ErrAuthRequired
	}
	s.backend.mu.Lock()
	s.backend.mail.from = from
	s.backend.mu.Unlock()
	return nil
}

func (s *relaySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.backend.mu.Lock()
	s.backend.mail.to = append(s.backend.mail.to, to)
	s.backend.mu.Unlock()
	return nil
}

func (s *relaySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	s.backend.mail.data = data
	s.backend.mu.Unlock()
	close(s.backend.done)
	return nil
}

func (s *relaySession) Reset() {}

func (s *relaySession) Logout() error { return nil }

// selfSignedTLS returns a server certificate for 127.0.0.1 and a pool trusting it.
func selfSignedTLS(t *testing.T) (*tls.Config, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "relay.test"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	}, pool
}

func startRelay(t *testing.T) (*relayBackend, int, *x509.CertPool) {
	t.Helper()
	serverTLS, pool := selfSignedTLS(t)
	be := &relayBackend{done: make(chan struct{})}
	srv := smtp.NewServer(be)
	srv.Domain = "relay.test"
	srv.TLSConfig = serverTLS
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { srv.Close() })
	return be, ln.Addr().(*net.TCPAddr).Port, pool
}

func TestSendDeliversOverStartTLSWithPlainAuth(t *testing.T) {
	be, port, pool := startRelay(t)
	m := New(Config{
		Host:     "127.0.0.1",
		Port:     port,
		Password: "secret",
		Timeout:  5 * time.Second,
		TLS:      &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
	})

	photo := []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F', 0x00}
	msg := testMessage()
	msg.Body = "Department: Sales\nName: Jane Doe\n"
	msg.Attachments = []Attachment{{Filename: "AQADx-1.jpg", ContentType: "image/jpeg", Data: photo}}

	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case <-be.done:
	case <-time.After(5 * time.Second):
		t.Fatal("relay never received DATA")
	}

	be.mu.Lock()
	got := be.mail
	be.mu.Unlock()

	if !got.tls {
		t.Fatal("AUTH happened before the TLS upgrade")
	}
	if got.username != "bot@example.org" || got.password != "secret" {
		t.Fatalf("auth = %q/%q, want sender address as username", got.username, got.password)
	}
	if got.from != "bot@example.org" || len(got.to) != 1 || got.to[0] != "hr@example.org" {
		t.Fatalf("envelope = %q -> %v", got.from, got.to)
	}

	mr, err := mail.CreateReader(bytes.NewReader(got.data))
	if err != nil {
		t.Fatalf("parse DATA: %v", err)
	}
	if subject, _ := mr.Header.Subject(); subject != msg.Subject {
		t.Fatalf("subject = %q", subject)
	}
	var attachment []byte
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		if h, ok := p.Header.(*mail.AttachmentHeader); ok {
			if ct, _, _ := h.ContentType(); ct != "image/jpeg" {
				t.Fatalf("attachment type = %q", ct)
			}
			attachment, _ = io.ReadAll(p.Body)
		}
	}
	if !bytes.Equal(attachment, photo) {
		t.Fatalf("attachment bytes = %x", attachment)
	}
}
