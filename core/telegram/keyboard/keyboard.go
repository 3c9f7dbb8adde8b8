// Package keyboard builds reply keyboards shown under the message input.
package keyboard

import tele "gopkg.in/telebot.v4"

// Option tweaks a reply keyboard.
type Option func(*tele.ReplyMarkup)

// OneTime hides the keyboard after the user taps a button.
func OneTime() Option {
	return func(m *tele.ReplyMarkup) { m.OneTimeKeyboard = true }
}

// RemoveKeyboard returns a markup that hides any reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard from rows of labels.
func ReplyButtons(rows [][]string, opts ...Option) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	for _, opt := range opts {
		opt(markup)
	}
	return markup
}

// Column places each label on its own row.
func Column(labels []string, opts ...Option) *tele.ReplyMarkup {
	return ReplyButtons(ChunkLabels(labels, 1), opts...)
}

// ChunkLabels splits labels into rows of up to n entries.
func ChunkLabels(labels []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	rows := make([][]string, 0, (len(labels)+n-1)/n)
	for i := 0; i < len(labels); i += n {
		rows = append(rows, labels[i:min(i+n, len(labels))])
	}
	return rows
}
