package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/photodesk/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Conversation consumes every non-command message.
type Conversation interface {
	HandleMessage(c tele.Context) error
}

// payloadEndpoints lists the message kinds forwarded to the conversation
// besides text. Each gets its own handler name in the summary line.
var payloadEndpoints = []struct {
	endpoint string
	name     string
}{
	{tele.OnPhoto, "photo"},
	{tele.OnDocument, "document"},
	{tele.OnVideo, "video"},
	{tele.OnAnimation, "animation"},
	{tele.OnSticker, "sticker"},
	{tele.OnVoice, "voice"},
	{tele.OnAudio, "audio"},
	{tele.OnVideoNote, "video_note"},
	{tele.OnLocation, "location"},
	{tele.OnContact, "contact"},
}

// MessageRoutes routes text and media messages to conv. Text matching a
// command alias goes to the command handler instead.
func MessageRoutes(conv Conversation, reg *tg.Registry) []tg.Route {
	if conv == nil {
		return nil
	}

	text := func(c tele.Context) error {
		start := time.Now()
		if reg != nil && strings.HasPrefix(c.Text(), "/") {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}
		return handleWithSummary(c, "conversation.text", start, "", "", func() error {
			return conv.HandleMessage(c)
		})
	}

	routes := make([]tg.Route, 0, len(payloadEndpoints)+1)
	routes = append(routes, tg.Route{Endpoint: tele.OnText, Handler: text})
	for _, p := range payloadEndpoints {
		name := "conversation." + p.name
		routes = append(routes, tg.Route{
			Endpoint: p.endpoint,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, name, time.Now(), "", "", func() error {
					return conv.HandleMessage(c)
				})
			},
		})
	}
	return routes
}
