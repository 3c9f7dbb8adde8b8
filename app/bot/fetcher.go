package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// ErrBotNotBound is returned by Fetch before the bot is running.
var ErrBotNotBound = errors.New("bot: fetcher not bound to a running bot")

// Fetcher downloads Telegram files by file ID.
type Fetcher struct {
	bot atomic.Pointer[tele.Bot]
}

// Bind sets the bot used for downloads.
func (f *Fetcher) Bind(b *tele.Bot) {
	f.bot.Store(b)
}

// Fetch saves the file to dst. The download is bounded by the bot HTTP
// client timeout; ctx is only checked before it starts.
func (f *Fetcher) Fetch(ctx context.Context, fileID, dst string) error {
	b := f.bot.Load()
	if b == nil {
		return ErrBotNotBound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.Download(&tele.File{FileID: fileID}, dst); err != nil {
		return fmt.Errorf("bot: download %s: %w", fileID, err)
	}
	return nil
}
