package middleware

import (
	"errors"
	"testing"
	"time"

	tghelpers "github.com/m3rciful/photodesk/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, updateID int, userID int64, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return bot.NewContext(tele.Update{
		ID: updateID,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newContext(t, 1, 7, "a"))
	_ = h(newContext(t, 2, 7, "b"))
	_ = h(newContext(t, 3, 8, "c"))
	clock = clock.Add(2 * time.Second)
	_ = h(newContext(t, 4, 7, "d"))

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if limited != 1 {
		t.Fatalf("limited = %d, want 1", limited)
	}
}

func TestRateLimitMiddlewareExclude(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Minute,
		Exclude:  map[string]struct{}{"message": {}},
		Now:      func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		_ = h(newContext(t, i, 7, "x"))
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestUpdateKind(t *testing.T) {
	cases := map[string]tele.Update{
		"command":      {Message: &tele.Message{Text: "/cancel"}},
		"message":      {Message: &tele.Message{Text: "Sales"}},
		"callback":     {Callback: &tele.Callback{}},
		"inline_query": {Query: &tele.Query{}},
		"other":        {},
	}
	for want, upd := range cases {
		if got := UpdateKind(upd); got != want {
			t.Fatalf("UpdateKind = %q, want %q", got, want)
		}
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newContext(t, 1, 7, "x"))
	if err == nil {
		t.Fatal("expected error from panic")
	}

	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	if err := h(newContext(t, 2, 7, "x")); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	c := newContext(t, 42, 7, "hello")
	h := LoggerMiddleware(func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); !ok {
			t.Fatal("context not stored")
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rid, _ := c.Get("rid").(string); rid != "42:7:7" {
		t.Fatalf("rid = %q", rid)
	}
}

func TestMessageMetricsMiddlewareResetsCounters(t *testing.T) {
	c := newContext(t, 1, 7, "x")
	tghelpers.RecordSend(c, true)
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		if msgs, kb := GetCounters(c); msgs != 0 || kb {
			t.Fatalf("counters not reset: %d %v", msgs, kb)
		}
		tghelpers.RecordSend(c, false)
		return nil
	})
	_ = h(c)
	if msgs, kb := GetCounters(c); msgs != 1 || kb {
		t.Fatalf("counters = %d %v", msgs, kb)
	}
}
