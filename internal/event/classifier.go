// internal/event/classifier.go
package event

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// PushMessage is the inbound push payload: a display block plus a
// string-keyed data bag whose "type" field drives classification.
type PushMessage struct {
	Notification PushNotificationBlock `json:"notification"`
	Data         map[string]string     `json:"data"`
}

// PushNotificationBlock carries the transport-provided display text.
type PushNotificationBlock struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Classified is the outcome of classifying one push message.
type Classified struct {
	Message PushMessage

	// Kind is the recognized event kind, or "" when the message did not
	// match the vocabulary and falls through to a generic notification.
	Kind Kind

	// Event is non-nil when the message produced a relayable pending
	// event (recognized match-scoped kind with a matchId present).
	Event *PendingEvent
}

// Recognized reports whether the message matched the event vocabulary.
func (c Classified) Recognized() bool { return c.Kind != "" }

// legacyKinds maps the older uppercase-snake and action-alias
// vocabularies onto the canonical one.
var legacyKinds = map[string]Kind{
	"accept_match":         KindMatchFound,
	"MATCH_FOUND":          KindMatchFound,
	"MATCH_STARTED":        KindMatchStarted,
	"MAP_BANNING_STARTED":  KindMapBanningStarted,
	"MAP_BANNED":           KindMapBanned,
	"MAP_BANNING_COMPLETE": KindMapBanningComplete,
	"ROUND_COMPLETED":      KindRoundCompleted,
	"MATCH_COMPLETED":      KindMatchCompleted,
	"PLAYER_UPDATE":        KindPlayerUpdate,
	"FRIEND_REQUEST":       KindFriendRequest,
	"TEAM_INVITE":          KindTeamInvite,
	"PARTY_INVITE":         KindPartyInvite,
}

func normalizeKind(s string) Kind {
	if s == "" {
		return ""
	}
	k := Kind(s)
	if k.Relayable() || k == KindFriendRequest || k == KindTeamInvite || k == KindPartyInvite {
		return k
	}
	if legacy, ok := legacyKinds[s]; ok {
		return legacy
	}
	return ""
}

// Classify parses a raw push body and maps it onto the canonical event
// vocabulary. data.type is the primary classification key; data.action
// is consulted as a fallback for payloads from older backend revisions.
// A nested JSON-encoded data.data blob (round/match completion player
// stats) is decoded best-effort; decode failure is non-fatal and leaves
// the raw string in the payload.
func Classify(raw []byte, now time.Time) (Classified, error) {
	var msg PushMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Classified{}, fmt.Errorf("malformed push payload: %w", err)
	}

	c := Classified{Message: msg}
	if msg.Data == nil {
		return c, nil
	}

	kind := normalizeKind(msg.Data["type"])
	if kind == "" {
		kind = normalizeKind(msg.Data["action"])
	}
	c.Kind = kind
	if kind == "" {
		return c, nil
	}

	matchID := msg.Data["matchId"]
	if !kind.Relayable() || matchID == "" {
		// Social invites and match events missing their matchId surface
		// as notifications only; nothing is stored or relayed.
		return c, nil
	}

	payload := make(map[string]interface{}, len(msg.Data))
	for k, v := range msg.Data {
		if k == "type" || k == "action" {
			continue
		}
		payload[k] = v
	}
	if nested, ok := msg.Data["data"]; ok && nested != "" {
		var decoded interface{}
		if err := json.Unmarshal([]byte(nested), &decoded); err != nil {
			log.WithError(err).Debug("nested data blob is not JSON, keeping raw string")
		} else {
			payload["data"] = decoded
		}
	}

	c.Event = &PendingEvent{
		Kind:       kind,
		MatchID:    matchID,
		Payload:    payload,
		ReceivedAt: now.UnixMilli(),
	}
	return c, nil
}
