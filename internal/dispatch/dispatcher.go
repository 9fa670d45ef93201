// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bosgames/portal/internal/notify"
	"github.com/bosgames/portal/internal/router"
)

// API is the slice of the portal backend the dispatcher drives. The
// concrete portalapi.Client satisfies it; tests substitute a stub.
type API interface {
	AcceptMatch(ctx context.Context, matchID, token string) error
	DeclineMatch(ctx context.Context, matchID, token string) error
	BanMap(ctx context.Context, matchID, leaderID, mapSlug, token string) error
	BanTimeout(ctx context.Context, matchID, token string) error
	AcceptFriendRequest(ctx context.Context, requestID, token string) error
	DeclineFriendRequest(ctx context.Context, requestID, token string) error
	AcceptTeamInvite(ctx context.Context, inviteID, token string) error
	DeclineTeamInvite(ctx context.Context, inviteID, token string) error
	AcceptPartyInvite(ctx context.Context, partyID, token string) error
	DeclinePartyInvite(ctx context.Context, partyID, token string) error
}

// TokenSource supplies the current access token for authenticated calls.
type TokenSource func() string

// Dispatcher executes user decisions (modal buttons, notification
// action buttons) against the backend. Calls are made exactly once: a
// failed accept or decline is reported, never retried, and the
// originating modal stays closed either way.
type Dispatcher struct {
	api      API
	router   *router.Router
	notifier notify.Notifier
	token    TokenSource
	logger   *log.Logger
}

func New(api API, r *router.Router, notifier notify.Notifier, token TokenSource, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if notifier == nil {
		notifier = notify.LogNotifier{Logger: logger}
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Dispatcher{api: api, router: r, notifier: notifier, token: token, logger: logger}
}

func (d *Dispatcher) show(n notify.Notification) {
	if err := d.notifier.Show(n); err != nil {
		d.logger.WithError(err).Warn("failed to show notification")
	}
}

// AcceptMatch acknowledges a found match. The acceptance modal closes
// before the call goes out; the countdown must never keep running while
// the request is in flight.
func (d *Dispatcher) AcceptMatch(ctx context.Context, matchID string) error {
	if d.router != nil {
		d.router.CloseMatchAcceptance()
	}
	if err := d.api.AcceptMatch(ctx, matchID, d.token()); err != nil {
		d.logger.WithError(err).WithField("matchId", matchID).Error("match accept failed")
		d.show(notify.Confirmation("Match acceptance failed", "Could not accept the match. You may have been removed from the queue."))
		return fmt.Errorf("accept match %s: %w", matchID, err)
	}
	d.show(notify.Confirmation("Match accepted", "Waiting for other players..."))
	return nil
}

// DeclineMatch turns a found match down and returns the player to idle.
func (d *Dispatcher) DeclineMatch(ctx context.Context, matchID string) error {
	if d.router != nil {
		d.router.CloseMatchAcceptance()
	}
	if err := d.api.DeclineMatch(ctx, matchID, d.token()); err != nil {
		d.logger.WithError(err).WithField("matchId", matchID).Error("match decline failed")
		d.show(notify.Confirmation("Match decline failed", "Could not decline the match."))
		return fmt.Errorf("decline match %s: %w", matchID, err)
	}
	return nil
}

// BanMap submits the current leader's ban. The modal stays open; the
// resulting map_banned event refreshes it.
func (d *Dispatcher) BanMap(ctx context.Context, matchID, leaderID, mapSlug string) error {
	if err := d.api.BanMap(ctx, matchID, leaderID, mapSlug, d.token()); err != nil {
		d.logger.WithError(err).WithFields(log.Fields{"matchId": matchID, "map": mapSlug}).
			Error("map ban failed")
		d.show(notify.Confirmation("Ban failed", "Could not ban "+mapSlug+"."))
		return fmt.Errorf("ban map %s in %s: %w", mapSlug, matchID, err)
	}
	return nil
}

// BanTimeout reports that the current leader let their ban window lapse,
// letting the backend auto-ban on their behalf.
func (d *Dispatcher) BanTimeout(ctx context.Context, matchID string) error {
	if err := d.api.BanTimeout(ctx, matchID, d.token()); err != nil {
		d.logger.WithError(err).WithField("matchId", matchID).Error("ban timeout report failed")
		return fmt.Errorf("ban timeout for %s: %w", matchID, err)
	}
	return nil
}

// HandleAction routes a notification button press. The action ID and
// data bag come straight from the platform notification callback.
func (d *Dispatcher) HandleAction(ctx context.Context, actionID string, data map[string]string) error {
	token := d.token()
	switch actionID {
	case "accept_match":
		return d.AcceptMatch(ctx, data["matchId"])
	case "decline_match":
		return d.DeclineMatch(ctx, data["matchId"])
	case "accept_friend":
		return d.social(ctx, "friend request", data["requestId"], d.api.AcceptFriendRequest, token, "Friend request accepted")
	case "decline_friend":
		return d.social(ctx, "friend request", data["requestId"], d.api.DeclineFriendRequest, token, "")
	case "accept_team":
		return d.social(ctx, "team invite", data["inviteId"], d.api.AcceptTeamInvite, token, "Team invite accepted")
	case "decline_team":
		return d.social(ctx, "team invite", data["inviteId"], d.api.DeclineTeamInvite, token, "")
	case "accept_party":
		return d.social(ctx, "party invite", data["partyId"], d.api.AcceptPartyInvite, token, "Party invite accepted")
	case "decline_party":
		return d.social(ctx, "party invite", data["partyId"], d.api.DeclinePartyInvite, token, "")
	case "view", "close", "":
		// Navigation and dismissal are host concerns.
		return nil
	default:
		d.logger.WithField("action", actionID).Warn("unknown notification action")
		return nil
	}
}

func (d *Dispatcher) social(ctx context.Context, what, id string, call func(context.Context, string, string) error, token, confirmTitle string) error {
	if id == "" {
		return fmt.Errorf("%s action missing id", what)
	}
	if err := call(ctx, id, token); err != nil {
		d.logger.WithError(err).WithField("id", id).Errorf("%s action failed", what)
		d.show(notify.Confirmation("Action failed", "Could not update the "+what+"."))
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if confirmTitle != "" {
		d.show(notify.Confirmation(confirmTitle, ""))
	}
	return nil
}
