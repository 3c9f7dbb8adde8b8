// Package conversation implements the department-then-photo intake flow as an
// explicit state table. It knows nothing about the chat transport.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/photodesk/app/relay"
	"github.com/m3rciful/photodesk/core/logger"
)

// ErrNoDepartments is returned by NewMachine for an empty department list.
var ErrNoDepartments = errors.New("conversation: department list is empty")

// step is the outcome of a transition before it is committed to the store.
type step struct {
	reply     Reply
	next      Session
	submitted bool
	submitErr error
}

type transition func(m *Machine, ctx context.Context, sess Session, ev Event) step

// anyState transitions apply regardless of the current state.
var anyState = map[EventKind]transition{
	EventStart:   (*Machine).start,
	EventCancel:  (*Machine).cancel,
	EventCommand: (*Machine).ignore,
}

var table = map[State]map[EventKind]transition{
	StateIdle: {
		EventText:  (*Machine).notStarted,
		EventPhoto: (*Machine).notStarted,
		EventOther: (*Machine).notStarted,
	},
	StateChoosing: {
		EventText:  (*Machine).choose,
		EventPhoto: (*Machine).notInList,
		EventOther: (*Machine).notInList,
	},
	StateAwaitingFile: {
		EventPhoto: (*Machine).receivePhoto,
		EventText:  (*Machine).onlyPhotos,
		EventOther: (*Machine).onlyPhotos,
	},
}

// Machine drives sessions through the intake flow.
type Machine struct {
	departments []string
	store       Store
	submitter   Submitter
	texts       Texts
}

// NewMachine builds a machine over an immutable copy of departments.
func NewMachine(departments []string, store Store, submitter Submitter, texts Texts) (*Machine, error) {
	if len(departments) == 0 {
		return nil, ErrNoDepartments
	}
	if store == nil || submitter == nil {
		return nil, errors.New("conversation: store and submitter are required")
	}
	return &Machine{
		departments: slices.Clone(departments),
		store:       store,
		submitter:   submitter,
		texts:       DefaultTexts().Merge(texts),
	}, nil
}

// Departments returns a copy of the configured list.
func (m *Machine) Departments() []string {
	return slices.Clone(m.departments)
}

// Sessions reports how many conversations are in progress.
func (m *Machine) Sessions() int {
	return m.store.Len()
}

// Handle applies ev to the session for key. Events for the same key are
// serialized, including any submission the event triggers.
func (m *Machine) Handle(ctx context.Context, key Key, ev Event) Result {
	unlock := m.store.Lock(key)
	defer unlock()

	sess, ok := m.store.Get(key)
	if !ok {
		sess = Session{State: StateIdle}
	}

	st := m.lookup(sess.State, ev.Kind)(m, ctx, sess, ev)
	if st.next.State == StateIdle {
		m.store.Clear(key)
	} else {
		m.store.Set(key, st.next)
	}

	res := Result{
		Reply:     st.reply,
		From:      sess.State,
		To:        st.next.State,
		Submitted: st.submitted,
		SubmitErr: st.submitErr,
	}
	dept := st.next.Department
	if dept == "" {
		dept = sess.Department
	}
	m.logTransition(ctx, ev, res, dept)
	return res
}

func (m *Machine) lookup(state State, kind EventKind) transition {
	if t, ok := anyState[kind]; ok {
		return t
	}
	if t, ok := table[state][kind]; ok {
		return t
	}
	return (*Machine).ignore
}

func (m *Machine) start(_ context.Context, _ Session, _ Event) step {
	return step{
		reply: Reply{Text: m.texts.Greeting, Options: m.Departments()},
		next:  Session{State: StateChoosing},
	}
}

func (m *Machine) cancel(_ context.Context, _ Session, _ Event) step {
	return step{
		reply: Reply{Text: m.texts.Cancelled, RemoveKeyboard: true},
		next:  Session{State: StateIdle},
	}
}

func (m *Machine) ignore(_ context.Context, sess Session, _ Event) step {
	return step{next: sess}
}

func (m *Machine) notStarted(_ context.Context, sess Session, _ Event) step {
	return step{reply: Reply{Text: m.texts.NotStarted}, next: sess}
}

func (m *Machine) notInList(_ context.Context, sess Session, _ Event) step {
	return step{reply: Reply{Text: m.texts.NotInList}, next: sess}
}

func (m *Machine) onlyPhotos(_ context.Context, sess Session, _ Event) step {
	return step{reply: Reply{Text: m.texts.OnlyPhotos}, next: sess}
}

// choose accepts only an exact match against the list.
func (m *Machine) choose(ctx context.Context, sess Session, ev Event) step {
	if !slices.Contains(m.departments, ev.Text) {
		return m.notInList(ctx, sess, ev)
	}
	return step{
		reply: Reply{Text: m.texts.chosen(ev.Text), RemoveKeyboard: true},
		next:  Session{State: StateAwaitingFile, Department: ev.Text},
	}
}

func (m *Machine) receivePhoto(ctx context.Context, sess Session, ev Event) step {
	idle := Session{State: StateIdle}
	if ev.Photo == nil {
		return m.onlyPhotos(ctx, sess, ev)
	}
	if sess.Department == "" {
		// Unreachable through the table; kept as a safety net.
		logger.LogEvent(ctx, logger.FSM, slog.LevelWarn, "fsm.missing_department",
			slog.String("status", "fail"),
			slog.String("state_from", string(sess.State)),
		)
		return step{reply: Reply{Text: m.texts.MissingDepartment}, next: idle}
	}
	caption := strings.TrimSpace(ev.Caption)
	if caption == "" {
		return step{reply: Reply{Text: m.texts.MissingCaption}, next: idle}
	}

	err := m.submitter.Submit(ctx, relay.Submission{
		Photo:      *ev.Photo,
		Department: sess.Department,
		Caption:    caption,
	})
	text := m.texts.Sent
	if err != nil {
		text = m.texts.Failed
	}
	return step{
		reply:     Reply{Text: text},
		next:      idle,
		submitted: true,
		submitErr: err,
	}
}

func (m *Machine) logTransition(ctx context.Context, ev Event, res Result, department string) {
	if !logger.FSM.Enabled(ctx, slog.LevelDebug) && res.From == res.To && !res.Submitted {
		return
	}
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("event_kind", string(ev.Kind)),
		slog.String("state_from", string(res.From)),
		slog.String("state_to", string(res.To)),
		slog.String("department", department),
	}
	if ev.Payload != "" {
		attrs = append(attrs, slog.String("payload", ev.Payload))
	}
	if res.Submitted {
		attrs = append(attrs, slog.String("outcome", logger.Status(res.SubmitErr)))
	}
	level := slog.LevelInfo
	if res.From == res.To && !res.Submitted {
		level = slog.LevelDebug
	}
	logger.LogEvent(ctx, logger.FSM, level, "fsm.transition", attrs...)
}
