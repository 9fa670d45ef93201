// internal/router/router.go
package router

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bosgames/portal/internal/event"
	"github.com/bosgames/portal/internal/portalapi"
	"github.com/bosgames/portal/internal/retry"
)

// MatchAcceptance is the accept/decline modal with its countdown.
type MatchAcceptance struct {
	MatchID       string
	TimeRemaining int
	Visible       bool
}

// ServerConnection is the "your server is ready" modal. Loading is true
// while the server details have not arrived yet.
type ServerConnection struct {
	MatchID     string
	ServerIP    string
	ServerPort  string
	SelectedMap string
	Visible     bool
	Loading     bool
}

// MapBanning is the ban-phase modal mirroring the remote session.
type MapBanning struct {
	MatchID string
	Session *portalapi.MapBanSession
	Visible bool
}

// State is the set of live modals. At most one instance per kind.
type State struct {
	MatchAcceptance  *MatchAcceptance
	ServerConnection *ServerConnection
	MapBanning       *MapBanning
}

// SessionFetcher retrieves the authoritative map-ban session.
type SessionFetcher func(ctx context.Context, matchID string) (portalapi.MapBanSession, error)

// Hooks are the router's outbound edges. All are optional.
type Hooks struct {
	// OnAcceptTimeout fires exactly once when the acceptance countdown
	// reaches zero without the user acting.
	OnAcceptTimeout func(matchID string)

	// OnRedirectLive fires when the post-ban redirect deadline passes,
	// whether or not server details ever arrived.
	OnRedirectLive func(matchID string)

	// Score broadcasts are handed through as-is; the receiving domain
	// logic must tolerate duplicate delivery.
	OnRoundCompleted func(ev event.PendingEvent)
	OnPlayerUpdate   func(ev event.PendingEvent)
	OnMatchCompleted func(ev event.PendingEvent)

	// OnStateChange receives a snapshot after every modal transition.
	OnStateChange func(State)
}

// Config tunes the router's timers. Zero values take the defaults the
// portal has always shipped with.
type Config struct {
	AcceptSeconds  int           // acceptance countdown, default 30
	RedirectAfter  time.Duration // post-ban redirect deadline, default 60s
	TickInterval   time.Duration // countdown tick, default 1s
	SessionRefetch retry.Policy  // map-ban session refetch policy
}

func (c Config) withDefaults() Config {
	if c.AcceptSeconds <= 0 {
		c.AcceptSeconds = 30
	}
	if c.RedirectAfter <= 0 {
		c.RedirectAfter = 60 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SessionRefetch.MaxAttempts == 0 {
		c.SessionRefetch = retry.DefaultSessionRefetch
	}
	return c
}

// Router merges the delivery paths (live push, worker relay, pull
// responses) into modal state transitions. Events from any path go
// through Apply; the merge rules below are the only safeguard against
// duplicate or out-of-order arrival.
type Router struct {
	cfg    Config
	hooks  Hooks
	fetch  SessionFetcher
	logger *log.Logger

	mu            sync.Mutex
	state         State
	acceptStop    chan struct{}
	redirectTimer *time.Timer
}

func New(cfg Config, hooks Hooks, fetch SessionFetcher, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Router{
		cfg:    cfg.withDefaults(),
		hooks:  hooks,
		fetch:  fetch,
		logger: logger,
	}
}

// Snapshot returns a copy of the current modal state.
func (r *Router) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotUnsafe()
}

func (r *Router) snapshotUnsafe() State {
	var s State
	if r.state.MatchAcceptance != nil {
		ma := *r.state.MatchAcceptance
		s.MatchAcceptance = &ma
	}
	if r.state.ServerConnection != nil {
		sc := *r.state.ServerConnection
		s.ServerConnection = &sc
	}
	if r.state.MapBanning != nil {
		mb := *r.state.MapBanning
		if mb.Session != nil {
			sess := *mb.Session
			sess.AvailableMaps = append([]string(nil), mb.Session.AvailableMaps...)
			sess.BannedMaps = append([]string(nil), mb.Session.BannedMaps...)
			sess.LeaderIDs = append([]string(nil), mb.Session.LeaderIDs...)
			mb.Session = &sess
		}
		s.MapBanning = &mb
	}
	return s
}

func (r *Router) stateChanged() {
	if r.hooks.OnStateChange == nil {
		return
	}
	r.mu.Lock()
	snap := r.snapshotUnsafe()
	r.mu.Unlock()
	r.hooks.OnStateChange(snap)
}

// Apply routes one event into modal state. It is safe to call from any
// delivery path; events for an already-visible modal update it in place
// instead of duplicating it.
func (r *Router) Apply(ctx context.Context, ev event.PendingEvent) {
	switch ev.Kind {
	case event.KindMatchFound:
		r.applyMatchFound(ev)
	case event.KindMatchStarted:
		r.applyMatchStarted(ev)
	case event.KindMapBanningStarted:
		r.applyMapBanningStarted(ctx, ev)
	case event.KindMapBanned:
		r.applyMapBanned(ctx, ev)
	case event.KindMapBanningComplete:
		r.applyMapBanningComplete(ev)
	case event.KindRoundCompleted:
		if r.hooks.OnRoundCompleted != nil {
			r.hooks.OnRoundCompleted(ev)
		}
	case event.KindPlayerUpdate:
		if r.hooks.OnPlayerUpdate != nil {
			r.hooks.OnPlayerUpdate(ev)
		}
	case event.KindMatchCompleted:
		if r.hooks.OnMatchCompleted != nil {
			r.hooks.OnMatchCompleted(ev)
		}
	default:
		r.logger.WithField("kind", ev.Kind).Debug("router ignoring event kind")
	}
}

func (r *Router) applyMatchFound(ev event.PendingEvent) {
	r.mu.Lock()
	if ma := r.state.MatchAcceptance; ma != nil && ma.Visible && ma.MatchID == ev.MatchID {
		// Same logical event arrived via a second delivery path.
		r.mu.Unlock()
		r.logger.WithField("matchId", ev.MatchID).Debug("acceptance modal already visible, dropping duplicate")
		return
	}
	r.state.MatchAcceptance = &MatchAcceptance{
		MatchID:       ev.MatchID,
		TimeRemaining: r.cfg.AcceptSeconds,
		Visible:       true,
	}
	r.startAcceptCountdownUnsafe(ev.MatchID)
	r.mu.Unlock()

	r.logger.WithField("matchId", ev.MatchID).Info("showing match acceptance modal")
	r.stateChanged()
}

func (r *Router) applyMatchStarted(ev event.PendingEvent) {
	ip := ev.PayloadString("serverIp")
	port := ev.PayloadString("serverPort")
	selected := ev.PayloadString("selectedMap")

	r.mu.Lock()
	if sc := r.state.ServerConnection; sc != nil && sc.Visible && sc.MatchID == ev.MatchID {
		// The modal is already up (opened by map_banning_complete or an
		// earlier delivery); fill in the details instead of duplicating.
		if ip != "" {
			sc.ServerIP = ip
		}
		if port != "" {
			sc.ServerPort = port
		}
		if selected != "" {
			sc.SelectedMap = selected
		}
		sc.Loading = false
	} else {
		r.state.ServerConnection = &ServerConnection{
			MatchID:     ev.MatchID,
			ServerIP:    ip,
			ServerPort:  port,
			SelectedMap: selected,
			Visible:     true,
			Loading:     ip == "",
		}
	}
	r.mu.Unlock()

	r.logger.WithFields(log.Fields{"matchId": ev.MatchID, "serverIp": ip}).
		Info("server connection modal updated")
	r.stateChanged()
}

func (r *Router) applyMapBanningStarted(ctx context.Context, ev event.PendingEvent) {
	r.mu.Lock()
	if mb := r.state.MapBanning; mb != nil && mb.Visible && mb.MatchID == ev.MatchID {
		r.mu.Unlock()
		return
	}
	r.state.MapBanning = &MapBanning{MatchID: ev.MatchID, Visible: true}
	r.mu.Unlock()
	r.stateChanged()

	if r.fetch == nil {
		return
	}
	// One best-effort fetch to seed the session; map_banned events will
	// refresh it with the full retry policy.
	sess, err := r.fetch(ctx, ev.MatchID)
	if err != nil {
		r.logger.WithError(err).WithField("matchId", ev.MatchID).
			Warn("initial map ban session fetch failed")
		return
	}
	r.installSession(ev.MatchID, sess)
}

func (r *Router) installSession(matchID string, sess portalapi.MapBanSession) {
	r.mu.Lock()
	mb := r.state.MapBanning
	if mb == nil || mb.MatchID != matchID {
		r.mu.Unlock()
		return
	}
	mb.Session = &sess
	r.mu.Unlock()
	r.stateChanged()
}

func (r *Router) applyMapBanned(ctx context.Context, ev event.PendingEvent) {
	r.mu.Lock()
	if mb := r.state.MapBanning; mb == nil || mb.MatchID != ev.MatchID {
		// A ban event implies the phase is in progress even if this
		// view never saw map_banning_started.
		r.state.MapBanning = &MapBanning{MatchID: ev.MatchID, Visible: true}
	}
	r.mu.Unlock()

	if r.fetch != nil {
		var sess portalapi.MapBanSession
		err := r.cfg.SessionRefetch.Do(ctx, func(ctx context.Context) error {
			var ferr error
			sess, ferr = r.fetch(ctx, ev.MatchID)
			return ferr
		})
		if err == nil {
			r.installSession(ev.MatchID, sess)
			return
		}
		r.logger.WithError(err).WithField("matchId", ev.MatchID).
			Warn("session refetch exhausted, applying inline ban diff")
	}
	r.applyBanDiff(ev)
}

// applyBanDiff merges the event's inline diff onto the last known
// session. Approximate by design: the authoritative refetch was
// unreachable and the modal must not sit on stale data.
func (r *Router) applyBanDiff(ev event.PendingEvent) {
	r.mu.Lock()
	mb := r.state.MapBanning
	if mb == nil || mb.MatchID != ev.MatchID {
		r.mu.Unlock()
		return
	}
	if mb.Session == nil {
		mb.Session = &portalapi.MapBanSession{MatchID: ev.MatchID}
	}
	sess := mb.Session

	if banned := ev.PayloadString("bannedMap"); banned != "" {
		present := false
		for _, m := range sess.BannedMaps {
			if m == banned {
				present = true
				break
			}
		}
		if !present {
			sess.BannedMaps = append(sess.BannedMaps, banned)
		}
		remaining := sess.AvailableMaps[:0]
		for _, m := range sess.AvailableMaps {
			if m != banned {
				remaining = append(remaining, m)
			}
		}
		sess.AvailableMaps = remaining
	}
	if raw := ev.PayloadString("remainingMaps"); raw != "" {
		var maps []string
		if err := json.Unmarshal([]byte(raw), &maps); err != nil {
			r.logger.WithError(err).Warn("unparseable remainingMaps list, keeping previous")
		} else {
			sess.AvailableMaps = maps
		}
	}
	if idx := ev.PayloadString("currentLeaderIndex"); idx != "" {
		if n, err := strconv.Atoi(idx); err == nil {
			sess.CurrentLeaderIndex = n
		}
	}
	r.mu.Unlock()
	r.stateChanged()
}

func (r *Router) applyMapBanningComplete(ev event.PendingEvent) {
	selected := ev.PayloadString("selectedMap")

	r.mu.Lock()
	if mb := r.state.MapBanning; mb != nil && mb.MatchID == ev.MatchID {
		r.state.MapBanning = nil
	}
	r.state.ServerConnection = &ServerConnection{
		MatchID:     ev.MatchID,
		SelectedMap: selected,
		Visible:     true,
		Loading:     true,
	}
	r.armRedirectTimerUnsafe(ev.MatchID)
	r.mu.Unlock()

	r.logger.WithFields(log.Fields{"matchId": ev.MatchID, "selectedMap": selected}).
		Info("map banning complete, awaiting server details")
	r.stateChanged()
}

// CloseMatchAcceptance hides the acceptance modal and stops its
// countdown without firing the timeout callback.
func (r *Router) CloseMatchAcceptance() {
	r.mu.Lock()
	r.state.MatchAcceptance = nil
	r.stopAcceptCountdownUnsafe()
	r.mu.Unlock()
	r.stateChanged()
}

// CloseServerConnection hides the connection modal and disarms the
// live-match redirect deadline.
func (r *Router) CloseServerConnection() {
	r.mu.Lock()
	r.state.ServerConnection = nil
	if r.redirectTimer != nil {
		r.redirectTimer.Stop()
		r.redirectTimer = nil
	}
	r.mu.Unlock()
	r.stateChanged()
}

// CloseMapBanning hides the ban-phase modal.
func (r *Router) CloseMapBanning() {
	r.mu.Lock()
	r.state.MapBanning = nil
	r.mu.Unlock()
	r.stateChanged()
}

// Shutdown stops every outstanding timer. The router is not reusable
// afterwards.
func (r *Router) Shutdown() {
	r.mu.Lock()
	r.stopAcceptCountdownUnsafe()
	if r.redirectTimer != nil {
		r.redirectTimer.Stop()
		r.redirectTimer = nil
	}
	r.mu.Unlock()
}

// startAcceptCountdownUnsafe replaces any running countdown with a new
// one for matchID. Assumes lock is held.
func (r *Router) startAcceptCountdownUnsafe(matchID string) {
	r.stopAcceptCountdownUnsafe()
	stop := make(chan struct{})
	r.acceptStop = stop

	go func() {
		ticker := time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.mu.Lock()
				ma := r.state.MatchAcceptance
				if r.acceptStop != stop || ma == nil || ma.MatchID != matchID {
					// Modal was closed or replaced; this countdown is stale.
					r.mu.Unlock()
					return
				}
				ma.TimeRemaining--
				if ma.TimeRemaining <= 0 {
					r.state.MatchAcceptance = nil
					r.acceptStop = nil
					r.mu.Unlock()
					r.logger.WithField("matchId", matchID).Info("match acceptance timed out")
					if r.hooks.OnAcceptTimeout != nil {
						r.hooks.OnAcceptTimeout(matchID)
					}
					r.stateChanged()
					return
				}
				r.mu.Unlock()
				r.stateChanged()
			case <-stop:
				return
			}
		}
	}()
}

func (r *Router) stopAcceptCountdownUnsafe() {
	if r.acceptStop != nil {
		close(r.acceptStop)
		r.acceptStop = nil
	}
}

// armRedirectTimerUnsafe starts the hard deadline that sends the view
// to the live-match page. It is not cancelled by match_started; only
// closing the connection modal disarms it. Assumes lock is held.
func (r *Router) armRedirectTimerUnsafe(matchID string) {
	if r.redirectTimer != nil {
		r.redirectTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(r.cfg.RedirectAfter, func() {
		r.mu.Lock()
		if r.redirectTimer != timer {
			r.mu.Unlock()
			return
		}
		r.redirectTimer = nil
		if sc := r.state.ServerConnection; sc != nil && sc.MatchID == matchID {
			r.state.ServerConnection = nil
		}
		r.mu.Unlock()
		r.logger.WithField("matchId", matchID).Info("redirecting to live match page")
		if r.hooks.OnRedirectLive != nil {
			r.hooks.OnRedirectLive(matchID)
		}
		r.stateChanged()
	})
	r.redirectTimer = timer
}
