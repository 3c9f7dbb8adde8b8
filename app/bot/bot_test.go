package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/photodesk/app/conversation"
	tg "github.com/m3rciful/photodesk/core/telegram"

	tele "gopkg.in/telebot.v4"
)

func TestEventFromMessage(t *testing.T) {
	photo := &tele.Photo{File: tele.File{FileID: "f1", UniqueID: "u1", FileSize: 2048}, Width: 1280, Height: 960}
	cases := []struct {
		name    string
		msg     *tele.Message
		kind    conversation.EventKind
		text    string
		payload string
	}{
		{"text", &tele.Message{Text: "Sales"}, conversation.EventText, "Sales", ""},
		{"start", &tele.Message{Text: "/start"}, conversation.EventStart, "/start", ""},
		{"cancel with bot suffix", &tele.Message{Text: "/cancel@PhotoDeskBot"}, conversation.EventCancel, "/cancel", ""},
		{"unknown command", &tele.Message{Text: "/help me"}, conversation.EventCommand, "/help", ""},
		{"document", &tele.Message{Document: &tele.Document{}}, conversation.EventOther, "", "document"},
		{"sticker", &tele.Message{Sticker: &tele.Sticker{}}, conversation.EventOther, "", "sticker"},
		{"location", &tele.Message{Location: &tele.Location{}}, conversation.EventOther, "", "location"},
		{"nil", nil, conversation.EventOther, "", "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := EventFromMessage(tc.msg)
			if ev.Kind != tc.kind || ev.Text != tc.text || ev.Payload != tc.payload {
				t.Fatalf("event = %+v", ev)
			}
		})
	}

	t.Run("photo", func(t *testing.T) {
		ev := EventFromMessage(&tele.Message{Photo: photo, Caption: "Jane Doe"})
		if ev.Kind != conversation.EventPhoto || ev.Caption != "Jane Doe" || ev.Photo == nil {
			t.Fatalf("event = %+v", ev)
		}
		if ev.Photo.FileID != "f1" || ev.Photo.UniqueID != "u1" || ev.Photo.Width != 1280 || ev.Photo.Size != 2048 {
			t.Fatalf("photo = %+v", *ev.Photo)
		}
	})
}

func TestReplyMarkup(t *testing.T) {
	m := ReplyMarkup(conversation.Reply{Text: "pick", Options: []string{"Sales", "Support"}})
	if m == nil || len(m.ReplyKeyboard) != 2 || m.ReplyKeyboard[1][0].Text != "Support" {
		t.Fatalf("markup = %+v", m)
	}
	if !m.OneTimeKeyboard {
		t.Fatal("department keyboard should be one-time")
	}
	if rm := ReplyMarkup(conversation.Reply{Text: "ok", RemoveKeyboard: true}); rm == nil || !rm.RemoveKeyboard {
		t.Fatalf("remove markup = %+v", rm)
	}
	if ReplyMarkup(conversation.Reply{Text: "plain"}) != nil {
		t.Fatal("plain reply should carry no markup")
	}
}

type recordingMachine struct {
	key conversation.Key
	ev  conversation.Event
}

func (r *recordingMachine) Handle(_ context.Context, key conversation.Key, ev conversation.Event) conversation.Result {
	r.key, r.ev = key, ev
	return conversation.Result{}
}

func newContext(t *testing.T, msg *tele.Message) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return b.NewContext(tele.Update{ID: 5, Message: msg})
}

func TestHandlerDispatchesWithSessionKey(t *testing.T) {
	m := &recordingMachine{}
	h := NewHandler(m)
	c := newContext(t, &tele.Message{
		Text:   "/unknown",
		Sender: &tele.User{ID: 11},
		Chat:   &tele.Chat{ID: -100, Type: tele.ChatGroup},
	})
	if err := h.HandleMessage(c); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if m.key != (conversation.Key{ChatID: -100, UserID: 11}) {
		t.Fatalf("key = %+v", m.key)
	}
	if m.ev.Kind != conversation.EventCommand {
		t.Fatalf("event = %+v", m.ev)
	}

	if err := h.Cancel(c); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if m.ev.Kind != conversation.EventCancel {
		t.Fatalf("event = %+v", m.ev)
	}
}

func TestHandlerSkipsUpdatesWithoutSender(t *testing.T) {
	m := &recordingMachine{}
	c := newContext(t, &tele.Message{Text: "hi"})
	if err := NewHandler(m).HandleMessage(c); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if m.ev.Kind != "" {
		t.Fatalf("machine should not run, got %+v", m.ev)
	}
}

func TestHandlerRegistersCommands(t *testing.T) {
	reg := tg.NewRegistry()
	NewHandler(&recordingMachine{}).Register(reg)
	for _, name := range []string{"/start", "/cancel"} {
		if _, _, ok := reg.LookupCommand(name); !ok {
			t.Fatalf("%s not registered", name)
		}
	}
	if n := len(reg.ListCommands(true)); n != 2 {
		t.Fatalf("visible commands = %d", n)
	}
}

func TestFetcherRequiresBot(t *testing.T) {
	var f Fetcher
	if err := f.Fetch(context.Background(), "id", t.TempDir()+"/x.jpg"); !errors.Is(err, ErrBotNotBound) {
		t.Fatalf("err = %v", err)
	}
}
