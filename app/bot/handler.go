package bot

import (
	"context"

	"github.com/m3rciful/photodesk/app/conversation"
	tg "github.com/m3rciful/photodesk/core/telegram"
	"github.com/m3rciful/photodesk/core/telegram/commands"
	tghelpers "github.com/m3rciful/photodesk/core/telegram/helpers"
	"github.com/m3rciful/photodesk/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Machine drives one conversation step.
type Machine interface {
	Handle(ctx context.Context, key conversation.Key, ev conversation.Event) conversation.Result
}

// Handler feeds Telegram messages into the conversation and sends its replies.
type Handler struct {
	machine Machine
}

// NewHandler returns a Handler backed by m.
func NewHandler(m Machine) *Handler {
	return &Handler{machine: m}
}

// Register adds /start and /cancel to the command registry.
func (h *Handler) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Choose a department and send a photo",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.Cancel,
		Description: "Cancel the current submission",
	})
}

// Start begins a new intake flow.
func (h *Handler) Start(c tele.Context) error {
	return h.dispatch(c, conversation.Event{Kind: conversation.EventStart, Text: "/start"})
}

// Cancel aborts the current flow.
func (h *Handler) Cancel(c tele.Context) error {
	return h.dispatch(c, conversation.Event{Kind: conversation.EventCancel, Text: "/cancel"})
}

// HandleMessage handles any non-command message.
func (h *Handler) HandleMessage(c tele.Context) error {
	return h.dispatch(c, EventFromMessage(c.Message()))
}

func (h *Handler) dispatch(c tele.Context, ev conversation.Event) error {
	key, ok := KeyOf(c)
	if !ok {
		return nil
	}
	res := h.machine.Handle(tghelpers.BuildContext(c), key, ev)
	return SendReply(c, res.Reply)
}

// SendReply renders r for Telegram. An empty reply sends nothing.
func SendReply(c tele.Context, r conversation.Reply) error {
	if r.Text == "" {
		return nil
	}
	return tghelpers.SendWithMarkup(c, r.Text, ReplyMarkup(r))
}

// ReplyMarkup builds the keyboard for r: one option per row, or a keyboard
// removal, or nothing.
func ReplyMarkup(r conversation.Reply) *tele.ReplyMarkup {
	switch {
	case len(r.Options) > 0:
		return keyboard.Column(r.Options, keyboard.OneTime())
	case r.RemoveKeyboard:
		return keyboard.RemoveKeyboard()
	}
	return nil
}
