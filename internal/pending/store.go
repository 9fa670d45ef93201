// internal/pending/store.go
package pending

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bosgames/portal/internal/event"
)

// SlotStore is the durable key/value cache behind the relay: small JSON
// blobs keyed by string, surviving worker restarts. Implementations are
// origin-scoped (one namespace per install).
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func slotKey(kind event.Kind) string {
	return "pending:" + string(kind)
}

// Relay persists classified events, one slot per kind, and hands them
// to views on demand. It is a best-effort cache, not a durable queue:
// every persistence failure is logged and treated as "no data".
type Relay struct {
	store  SlotStore
	logger *log.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewRelay(store SlotStore, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Relay{store: store, logger: logger, Now: time.Now}
}

// Store writes the event into its kind's slot, overwriting any previous
// occupant. A zero ReceivedAt is stamped with the current time.
func (r *Relay) Store(ctx context.Context, ev event.PendingEvent) {
	if ev.ReceivedAt == 0 {
		ev.ReceivedAt = r.Now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.WithError(err).WithField("kind", ev.Kind).Warn("could not encode pending event")
		return
	}
	if err := r.store.Set(ctx, slotKey(ev.Kind), data); err != nil {
		r.logger.WithError(err).WithField("kind", ev.Kind).Warn("could not persist pending event")
	}
}

// Pull returns the pending event for kind if one exists and is still
// inside the delivery window, deleting the slot either way. A stale
// occupant is discarded, not delivered.
func (r *Relay) Pull(ctx context.Context, kind event.Kind) (*event.PendingEvent, bool) {
	data, found, err := r.store.Get(ctx, slotKey(kind))
	if err != nil {
		r.logger.WithError(err).WithField("kind", kind).Warn("pending slot read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	if err := r.store.Delete(ctx, slotKey(kind)); err != nil {
		r.logger.WithError(err).WithField("kind", kind).Warn("pending slot delete failed")
	}

	var ev event.PendingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		r.logger.WithError(err).WithField("kind", kind).Warn("pending slot held garbage, dropped")
		return nil, false
	}
	if ev.Stale(r.Now()) {
		r.logger.WithFields(log.Fields{"kind": kind, "matchId": ev.MatchID}).
			Debug("pending event expired, discarding")
		return nil, false
	}
	return &ev, true
}

// PullAny probes every known kind in fixed priority order and returns
// the first non-stale hit. Only one event is returned per call; callers
// re-invoke to drain further kinds.
func (r *Relay) PullAny(ctx context.Context) (*event.PendingEvent, bool) {
	for _, kind := range event.PullPriority {
		if ev, ok := r.Pull(ctx, kind); ok {
			return ev, true
		}
	}
	return nil, false
}

// ClearAll deletes pending slots. With a matchID the clear is limited
// to the map-banning kinds whose stored event concerns that match;
// without one every slot goes.
func (r *Relay) ClearAll(ctx context.Context, matchID string) {
	if matchID == "" {
		for _, kind := range event.PullPriority {
			if err := r.store.Delete(ctx, slotKey(kind)); err != nil {
				r.logger.WithError(err).WithField("kind", kind).Warn("pending slot delete failed")
			}
		}
		return
	}
	for _, kind := range event.MapBanKinds {
		data, found, err := r.store.Get(ctx, slotKey(kind))
		if err != nil || !found {
			continue
		}
		var ev event.PendingEvent
		if err := json.Unmarshal(data, &ev); err == nil && ev.MatchID != matchID {
			continue
		}
		if err := r.store.Delete(ctx, slotKey(kind)); err != nil {
			r.logger.WithError(err).WithField("kind", kind).Warn("pending slot delete failed")
		}
	}
}
