package helpers

import tele "gopkg.in/telebot.v4"

const (
	messagesKey = "messages"
	keyboardKey = "kb"
)

// ResetCounters zeroes the per-update reply counters.
func ResetCounters(c tele.Context) {
	c.Set(messagesKey, 0)
	c.Set(keyboardKey, false)
}

// RecordSend counts one reply for the current update. It runs on the handler
// goroutine, when the reply is accepted, so handler summaries see it even if
// the dispatcher delivers later.
func RecordSend(c tele.Context, withKeyboard bool) {
	n, _ := c.Get(messagesKey).(int)
	c.Set(messagesKey, n+1)
	if withKeyboard {
		c.Set(keyboardKey, true)
	}
}

// Counters returns the replies recorded for the update and whether any carried a keyboard.
func Counters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(messagesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return msgs, kb
}
