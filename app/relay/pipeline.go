// Package relay turns a received photo into an email to the intake mailbox.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/m3rciful/photodesk/app/mailer"
	"github.com/m3rciful/photodesk/core/logger"
)

// ErrNoPhoto is returned when a submission carries no file reference.
var ErrNoPhoto = errors.New("relay: submission has no photo")

// photoExt is the fixed extension of downloaded photos; Telegram serves them as JPEG.
const photoExt = ".jpg"

// Photo references a file held by the chat platform.
type Photo struct {
	FileID   string
	UniqueID string
	Width    int
	Height   int
	Size     int64
}

// Submission is one relay attempt.
type Submission struct {
	ID         string
	Photo      Photo
	Department string
	Caption    string
}

// Subject renders the email subject for the submission.
func (s Submission) Subject() string {
	return fmt.Sprintf("Photo for department: %s | %s", s.Department, s.Caption)
}

// Fetcher downloads a platform file to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, fileID, dst string) error
}

// Sender submits a composed message.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Settings are fixed for the process lifetime.
type Settings struct {
	From          string
	To            string
	TempDir       string
	MaxConcurrent int
}

// Stats are cumulative pipeline counters.
type Stats struct {
	Attempted int64 `json:"attempted"`
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
}

// Pipeline downloads, mails and cleans up one photo per Submit call.
type Pipeline struct {
	fetcher  Fetcher
	sender   Sender
	settings Settings
	slots    *semaphore.Weighted

	attempted atomic.Int64
	sent      atomic.Int64
	failed    atomic.Int64
}

// NewPipeline wires a pipeline. MaxConcurrent below one means one.
func NewPipeline(fetcher Fetcher, sender Sender, settings Settings) *Pipeline {
	if settings.MaxConcurrent < 1 {
		settings.MaxConcurrent = 1
	}
	if settings.TempDir == "" {
		settings.TempDir = os.TempDir()
	}
	return &Pipeline{
		fetcher:  fetcher,
		sender:   sender,
		settings: settings,
		slots:    semaphore.NewWeighted(int64(settings.MaxConcurrent)),
	}
}

// Submit relays s exactly once. The temporary file is removed on every path.
func (p *Pipeline) Submit(ctx context.Context, s Submission) error {
	if s.Photo.FileID == "" {
		return ErrNoPhoto
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("relay: wait for slot: %w", err)
	}
	defer p.slots.Release(1)

	start := time.Now()
	p.attempted.Add(1)
	err := p.relay(ctx, s)
	if err != nil {
		p.failed.Add(1)
	} else {
		p.sent.Add(1)
	}

	level := slog.LevelInfo
	event := "relay.sent"
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("submission_id", s.ID),
		slog.String("department", s.Department),
		slog.String("file_unique_id", s.Photo.UniqueID),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		level = slog.LevelError
		event = "relay.failed"
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.LogEvent(ctx, logger.Relay, level, event, attrs...)
	return err
}

func (p *Pipeline) relay(ctx context.Context, s Submission) error {
	path := p.tempPath(s)
	defer removeTemp(ctx, path)

	if err := p.fetcher.Fetch(ctx, s.Photo.FileID, path); err != nil {
		return fmt.Errorf("relay: download photo: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("relay: read photo: %w", err)
	}

	name := filepath.Base(path)
	msg := mailer.Message{
		From:    p.settings.From,
		To:      []string{p.settings.To},
		Subject: s.Subject(),
		Body:    fmt.Sprintf("Department: %s\nName: %s\n", s.Department, s.Caption),
		Attachments: []mailer.Attachment{{
			Filename:    name,
			ContentType: imageType(name),
			Data:        data,
		}},
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("relay: send mail: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Attempted: p.attempted.Load(),
		Sent:      p.sent.Load(),
		Failed:    p.failed.Load(),
	}
}

// tempPath is unique per submission so concurrent relays of the same photo never share a file.
func (p *Pipeline) tempPath(s Submission) string {
	return filepath.Join(p.settings.TempDir, safeName(s.Photo.UniqueID)+"-"+safeName(s.ID)+photoExt)
}

func removeTemp(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogEvent(ctx, logger.Relay, slog.LevelWarn, "relay.cleanup_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func safeName(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if out == "" {
		return "photo"
	}
	return out
}

// knownImageTypes pins common extensions so the result does not depend on
// the host MIME tables.
var knownImageTypes = map[string]string{
	"":      "image/jpeg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
}

// imageType infers the MIME type from the file extension, forcing the major type to image.
func imageType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := knownImageTypes[ext]; ok {
		return t
	}
	if t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil && strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}
