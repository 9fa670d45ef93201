// internal/event/event.go
package event

import "time"

// Kind identifies one of the closed set of portal push-event types.
// This is the canonical wire vocabulary: lowercase snake case. Older
// backend revisions emitted uppercase variants ("MATCH_FOUND") and an
// "accept_match" action alias; those are translated at the classifier
// boundary and never appear past it.
type Kind string

const (
	KindMatchFound         Kind = "match_found"
	KindMatchStarted       Kind = "match_started"
	KindMapBanningStarted  Kind = "map_banning_started"
	KindMapBanned          Kind = "map_banned"
	KindMapBanningComplete Kind = "map_banning_complete"
	KindRoundCompleted     Kind = "round_completed"
	KindMatchCompleted     Kind = "match_completed"
	KindPlayerUpdate       Kind = "player_update"
	KindFriendRequest      Kind = "friend_request"
	KindTeamInvite         Kind = "team_invite"
	KindPartyInvite        Kind = "party_invite"
)

// PullPriority is the fixed probe order used when a view asks for "any"
// pending event without naming a kind. Match-acceptance wins over
// everything else; passive score updates come last.
var PullPriority = []Kind{
	KindMatchFound,
	KindMatchStarted,
	KindMapBanningStarted,
	KindMapBanned,
	KindMapBanningComplete,
	KindRoundCompleted,
	KindMatchCompleted,
	KindPlayerUpdate,
}

// MapBanKinds are the kinds a match-scoped ClearAll is limited to.
var MapBanKinds = []Kind{
	KindMapBanningStarted,
	KindMapBanned,
	KindMapBanningComplete,
}

// Relayable reports whether events of this kind are persisted in a
// pending slot and relayed to views. Social kinds (friend/team/party
// invites) only ever surface as system notifications.
func (k Kind) Relayable() bool {
	for _, p := range PullPriority {
		if k == p {
			return true
		}
	}
	return false
}

// StaleAfter is how long a pending event stays deliverable. Anything
// older is discarded on the next pull attempt instead of delivered.
const StaleAfter = 5 * time.Minute

// PendingEvent is a classified push event waiting for (or in flight to)
// a foreground view. One slot exists per kind; a newer event of the
// same kind overwrites the older one.
type PendingEvent struct {
	Kind       Kind                   `json:"kind"`
	MatchID    string                 `json:"matchId"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	ReceivedAt int64                  `json:"receivedAt"` // epoch ms
}

// Stale reports whether the event has outlived the delivery window.
func (e PendingEvent) Stale(now time.Time) bool {
	received := time.UnixMilli(e.ReceivedAt)
	return now.Sub(received) >= StaleAfter
}

// PayloadString returns the named payload field as a string, or "".
func (e PendingEvent) PayloadString(key string) string {
	if e.Payload == nil {
		return ""
	}
	s, _ := e.Payload[key].(string)
	return s
}
