package conversation

import (
	"context"

	"github.com/m3rciful/photodesk/app/relay"
)

// State is the step of the intake flow a session is in.
type State string

const (
	// StateIdle means no flow is running. Sessions in this state are not stored.
	StateIdle State = "idle"
	// StateChoosing waits for a department name.
	StateChoosing State = "choosing"
	// StateAwaitingFile waits for a captioned photo.
	StateAwaitingFile State = "awaiting_file"
)

// EventKind classifies an inbound message.
type EventKind string

const (
	EventStart   EventKind = "start"
	EventCancel  EventKind = "cancel"
	EventText    EventKind = "text"
	EventPhoto   EventKind = "photo"
	EventCommand EventKind = "command"
	EventOther   EventKind = "other"
)

// Event is a transport-neutral inbound message.
type Event struct {
	Kind EventKind
	// Text holds the message text, or the command for EventCommand.
	Text    string
	Caption string
	// Photo is the highest-resolution variant; set only for EventPhoto.
	Photo *relay.Photo
	// Payload names the content type of an EventOther, for logs.
	Payload string
}

// Key identifies a session.
type Key struct {
	ChatID int64
	UserID int64
}

// Session is the per-key conversation data.
type Session struct {
	State      State
	Department string
}

// Reply is what the transport sends back. An empty Text means stay silent.
type Reply struct {
	Text string
	// Options are rendered as a quick-reply keyboard, one per row.
	Options        []string
	RemoveKeyboard bool
}

// Result describes one handled event.
type Result struct {
	Reply     Reply
	From      State
	To        State
	Submitted bool
	SubmitErr error
}

// Store is the session storage the machine needs.
type Store interface {
	Get(Key) (Session, bool)
	Set(Key, Session)
	Clear(Key)
	Lock(Key) func()
	Len() int
}

// Submitter relays one captioned photo.
type Submitter interface {
	Submit(ctx context.Context, s relay.Submission) error
}
