// internal/notify/presenter.go
package notify

import (
	"github.com/bosgames/portal/internal/event"
	log "github.com/sirupsen/logrus"
)

// Action is one button on a system notification. The ID comes back on
// the click callback together with the notification's data bag.
type Action struct {
	ID    string `json:"action"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

// Notification is the full request handed to the platform notification
// UI. The presenter fills it deterministically from (kind, payload).
type Notification struct {
	Title              string            `json:"title"`
	Body               string            `json:"body"`
	Icon               string            `json:"icon"`
	Badge              string            `json:"badge"`
	Tag                string            `json:"tag"`
	Data               map[string]string `json:"data"`
	Actions            []Action          `json:"actions"`
	RequireInteraction bool              `json:"requireInteraction"`
	Silent             bool              `json:"silent"`
}

// Notifier shows a notification via the platform UI. Implementations
// belong to the host; LogNotifier is the headless default.
type Notifier interface {
	Show(n Notification) error
}

const defaultIcon = "/favicon.ico"

var (
	closeAction = Action{ID: "close", Title: "Close", Icon: defaultIcon}
	viewAction  = Action{ID: "view", Title: "View", Icon: defaultIcon}
)

// actionTable picks the button set for a kind. Anything not listed gets
// the generic View/Close pair.
var actionTable = map[event.Kind][]Action{
	event.KindMatchFound: {
		{ID: "accept_match", Title: "Accept Match", Icon: defaultIcon},
		{ID: "decline_match", Title: "Decline Match", Icon: defaultIcon},
		closeAction,
	},
	event.KindFriendRequest: {
		{ID: "accept_friend", Title: "Accept", Icon: defaultIcon},
		{ID: "decline_friend", Title: "Decline", Icon: defaultIcon},
		closeAction,
	},
	event.KindTeamInvite: {
		{ID: "accept_team", Title: "Accept", Icon: defaultIcon},
		{ID: "decline_team", Title: "Decline", Icon: defaultIcon},
		closeAction,
	},
	event.KindPartyInvite: {
		{ID: "accept_party", Title: "Accept", Icon: defaultIcon},
		{ID: "decline_party", Title: "Decline", Icon: defaultIcon},
		closeAction,
	},
}

// important kinds keep the notification on screen until the user acts.
var requireInteraction = map[event.Kind]bool{
	event.KindMatchFound:    true,
	event.KindFriendRequest: true,
	event.KindTeamInvite:    true,
	event.KindPartyInvite:   true,
}

// Present maps a classified push message onto a notification request.
// It is a pure function: same message in, same notification out.
func Present(c event.Classified) Notification {
	title := c.Message.Notification.Title
	if title == "" {
		title = "BOS Games"
	}
	body := c.Message.Notification.Body
	if body == "" {
		body = "New notification"
	}
	tag := c.Message.Data["tag"]
	if tag == "" {
		tag = "default"
	}

	actions, ok := actionTable[c.Kind]
	if !ok {
		actions = []Action{viewAction, closeAction}
	}

	data := c.Message.Data
	if data == nil {
		data = map[string]string{}
	}

	return Notification{
		Title:              title,
		Body:               body,
		Icon:               defaultIcon,
		Badge:              defaultIcon,
		Tag:                tag,
		Data:               data,
		Actions:            actions,
		RequireInteraction: requireInteraction[c.Kind],
		Silent:             false,
	}
}

// Confirmation builds the simple title/body notification shown after a
// user action (match accepted, map banned, ...) completes.
func Confirmation(title, body string) Notification {
	return Notification{
		Title:   title,
		Body:    body,
		Icon:    defaultIcon,
		Badge:   defaultIcon,
		Tag:     "default",
		Data:    map[string]string{},
		Actions: []Action{closeAction},
	}
}

// LogNotifier writes notifications to the log instead of a platform UI.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Show(notif Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithFields(log.Fields{
		"title": notif.Title,
		"tag":   notif.Tag,
	}).Info("notification")
	return nil
}
