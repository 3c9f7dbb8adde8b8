package mailer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Message is one outbound email.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Attachment is a file carried in a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Compose writes msg to w as a multipart RFC 5322 message.
func Compose(w io.Writer, msg Message) error {
	if msg.From == "" || len(msg.To) == 0 {
		return errors.New("mailer: message needs a sender and at least one recipient")
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: msg.From}})
	h.SetAddressList("To", addressList(msg.To))
	h.SetSubject(msg.Subject)
	h.SetMessageID(uuid.NewString() + "@" + domainOf(msg.From))

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("mailer: create writer: %w", err)
	}

	if msg.Body != "" {
		if err := writeText(mw, msg.Body); err != nil {
			return err
		}
	}
	for _, a := range msg.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("mailer: close message: %w", err)
	}
	return nil
}

func writeText(mw *mail.Writer, body string) error {
	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("mailer: create inline: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("mailer: create text part: %w", err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("mailer: write text part: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("mailer: close text part: %w", err)
	}
	return tw.Close()
}

func writeAttachment(mw *mail.Writer, a Attachment) error {
	var ah mail.AttachmentHeader
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	ah.Set("Content-Type", ct)
	ah.SetFilename(a.Filename)
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("mailer: create attachment %s: %w", a.Filename, err)
	}
	if _, err := aw.Write(a.Data); err != nil {
		return fmt.Errorf("mailer: write attachment %s: %w", a.Filename, err)
	}
	return aw.Close()
}

func addressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Address: a})
	}
	return out
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
