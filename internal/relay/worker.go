// internal/relay/worker.go
package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bosgames/portal/internal/event"
	"github.com/bosgames/portal/internal/notify"
	"github.com/bosgames/portal/internal/pending"
)

// Message types for the worker<->view channel. Event deliveries reuse
// the event-kind vocabulary via the embedded PendingEvent; the control
// types below cover the pull-style round trips.
const (
	MsgEvent        = "event"         // worker -> view, fire-and-forget relay
	MsgCheckPending = "check_pending" // view -> worker, request
	MsgPending      = "pending"       // worker -> view, response (Event may be nil)
	MsgClearPending = "clear_pending" // view -> worker, fire-and-forget
	MsgSimulatePush = "simulate_push" // view -> worker, test hook
)

// Message is the JSON envelope exchanged between the worker and views.
type Message struct {
	Type string `json:"type"`

	// RequestID correlates a check_pending request with its pending
	// response on the same view channel.
	RequestID string `json:"requestId,omitempty"`

	// Kind optionally narrows a check_pending probe to one event kind.
	Kind event.Kind `json:"kind,omitempty"`

	// MatchID scopes a clear_pending to one match's map-ban slots.
	MatchID string `json:"matchId,omitempty"`

	// Event carries the relayed pending event for event/pending types.
	Event *event.PendingEvent `json:"event,omitempty"`

	// Payload is a raw push body for simulate_push.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ViewConn is one attached foreground view. Messages are pushed onto
// Out in send order; the transport binding drains it.
type ViewConn struct {
	ID     uuid.UUID
	Out    chan Message
	Cancel func()
}

func NewViewConn() *ViewConn {
	return &ViewConn{
		ID:  uuid.New(),
		Out: make(chan Message, 32),
	}
}

// Write pushes a message onto the view's channel without blocking. A
// full or closed channel drops the message; the pending slot still
// holds it for a later pull, so dropping here loses nothing for good.
func (v *ViewConn) Write(msg Message) bool {
	select {
	case v.Out <- msg:
		return true
	default:
		log.WithFields(log.Fields{"view": v.ID, "type": msg.Type}).
			Warn("view channel full or closed, dropped message")
		return false
	}
}

// Worker is the background half of the notification pipeline. It
// classifies inbound push payloads, shows system notifications,
// persists relayable events and attempts immediate delivery to every
// attached view.
type Worker struct {
	relay    *pending.Relay
	notifier notify.Notifier
	logger   *log.Logger

	mu    sync.Mutex
	views map[uuid.UUID]*ViewConn

	// Now is swappable for tests.
	Now func() time.Time
}

func NewWorker(relay *pending.Relay, notifier notify.Notifier, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if notifier == nil {
		notifier = notify.LogNotifier{Logger: logger}
	}
	return &Worker{
		relay:    relay,
		notifier: notifier,
		logger:   logger,
		views:    make(map[uuid.UUID]*ViewConn),
		Now:      time.Now,
	}
}

// Attach registers an open view for fire-and-forget relay delivery.
func (w *Worker) Attach(v *ViewConn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.views[v.ID] = v
	w.logger.WithField("view", v.ID).Info("view attached")
}

// Detach removes a view. Its Out channel is closed so the transport's
// write pump terminates.
func (w *Worker) Detach(id uuid.UUID) {
	w.mu.Lock()
	v, ok := w.views[id]
	delete(w.views, id)
	w.mu.Unlock()
	if !ok {
		return
	}
	close(v.Out)
	if v.Cancel != nil {
		v.Cancel()
	}
	w.logger.WithField("view", id).Info("view detached")
}

// ViewCount reports how many views are currently attached.
func (w *Worker) ViewCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.views)
}

// HandlePush processes one raw push payload: classify, show the system
// notification, then persist and broadcast if the event is relayable.
// Persist and broadcast run unconditionally side by side, so a view
// that is already open may see the event twice (once live, once via a
// later pull); the foreground router deduplicates.
func (w *Worker) HandlePush(ctx context.Context, raw []byte) error {
	c, err := event.Classify(raw, w.Now())
	if err != nil {
		w.logger.WithError(err).Warn("unparseable push payload")
		return err
	}

	if err := w.notifier.Show(notify.Present(c)); err != nil {
		w.logger.WithError(err).Warn("notification display failed")
	}

	if c.Event == nil {
		if !c.Recognized() {
			w.logger.WithField("type", c.Message.Data["type"]).
				Debug("unrecognized push type, generic notification only")
		}
		return nil
	}

	w.relay.Store(ctx, *c.Event)
	w.broadcast(*c.Event)
	return nil
}

func (w *Worker) broadcast(ev event.PendingEvent) {
	w.mu.Lock()
	views := make([]*ViewConn, 0, len(w.views))
	for _, v := range w.views {
		views = append(views, v)
	}
	w.mu.Unlock()

	msg := Message{Type: MsgEvent, Event: &ev}
	for _, v := range views {
		v.Write(msg)
	}
	if len(views) > 0 {
		w.logger.WithFields(log.Fields{"kind": ev.Kind, "matchId": ev.MatchID, "views": len(views)}).
			Debug("relayed event to open views")
	}
}

// HandleMessage services one view-originated control message.
func (w *Worker) HandleMessage(ctx context.Context, v *ViewConn, msg Message) {
	switch msg.Type {
	case MsgCheckPending:
		var ev *event.PendingEvent
		var ok bool
		if msg.Kind != "" {
			ev, ok = w.relay.Pull(ctx, msg.Kind)
		} else {
			ev, ok = w.relay.PullAny(ctx)
		}
		reply := Message{Type: MsgPending, RequestID: msg.RequestID}
		if ok {
			reply.Event = ev
		}
		v.Write(reply)

	case MsgClearPending:
		w.relay.ClearAll(ctx, msg.MatchID)

	case MsgSimulatePush:
		if len(msg.Payload) > 0 {
			_ = w.HandlePush(ctx, msg.Payload)
		}

	default:
		w.logger.WithFields(log.Fields{"view": v.ID, "type": msg.Type}).
			Warn("unknown view message type")
	}
}
