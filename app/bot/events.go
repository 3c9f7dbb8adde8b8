// Package bot adapts Telegram updates to the intake conversation.
package bot

import (
	"strings"

	"github.com/m3rciful/photodesk/app/conversation"
	"github.com/m3rciful/photodesk/app/relay"

	tele "gopkg.in/telebot.v4"
)

// EventFromMessage maps a Telegram message to a conversation event.
func EventFromMessage(msg *tele.Message) conversation.Event {
	if msg == nil {
		return conversation.Event{Kind: conversation.EventOther, Payload: "empty"}
	}
	if p := msg.Photo; p != nil {
		return conversation.Event{
			Kind:    conversation.EventPhoto,
			Caption: msg.Caption,
			Photo: &relay.Photo{
				FileID:   p.FileID,
				UniqueID: p.UniqueID,
				Width:    p.Width,
				Height:   p.Height,
				Size:     int64(p.FileSize),
			},
		}
	}
	if msg.Text != "" {
		if strings.HasPrefix(msg.Text, "/") {
			switch name := commandName(msg.Text); name {
			case "/start":
				return conversation.Event{Kind: conversation.EventStart, Text: name}
			case "/cancel":
				return conversation.Event{Kind: conversation.EventCancel, Text: name}
			default:
				return conversation.Event{Kind: conversation.EventCommand, Text: name}
			}
		}
		return conversation.Event{Kind: conversation.EventText, Text: msg.Text}
	}
	return conversation.Event{Kind: conversation.EventOther, Payload: payloadKind(msg)}
}

// commandName strips arguments and the @bot suffix from a slash command.
func commandName(text string) string {
	name := strings.Fields(text)[0]
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func payloadKind(msg *tele.Message) string {
	switch {
	case msg.Document != nil:
		return "document"
	case msg.Video != nil:
		return "video"
	case msg.Animation != nil:
		return "animation"
	case msg.Sticker != nil:
		return "sticker"
	case msg.Voice != nil:
		return "voice"
	case msg.Audio != nil:
		return "audio"
	case msg.VideoNote != nil:
		return "video_note"
	case msg.Location != nil:
		return "location"
	case msg.Contact != nil:
		return "contact"
	}
	return "unknown"
}

// KeyOf returns the session key for the update. Updates without a chat or
// sender have no session.
func KeyOf(c tele.Context) (conversation.Key, bool) {
	chat, user := c.Chat(), c.Sender()
	if chat == nil || user == nil {
		return conversation.Key{}, false
	}
	return conversation.Key{ChatID: chat.ID, UserID: user.ID}, true
}
