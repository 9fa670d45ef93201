// internal/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosgames/portal/internal/event"
	"github.com/bosgames/portal/internal/notify"
	"github.com/bosgames/portal/internal/router"
)

// stubAPI records every backend call and serves a configurable error.
type stubAPI struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *stubAPI) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.err
}

func (s *stubAPI) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubAPI) AcceptMatch(ctx context.Context, matchID, token string) error {
	return s.record("accept:" + matchID + ":" + token)
}
func (s *stubAPI) DeclineMatch(ctx context.Context, matchID, token string) error {
	return s.record("decline:" + matchID)
}
func (s *stubAPI) BanMap(ctx context.Context, matchID, leaderID, mapSlug, token string) error {
	return s.record("ban:" + matchID + ":" + leaderID + ":" + mapSlug)
}
func (s *stubAPI) BanTimeout(ctx context.Context, matchID, token string) error {
	return s.record("bantimeout:" + matchID)
}
func (s *stubAPI) AcceptFriendRequest(ctx context.Context, id, token string) error {
	return s.record("acceptfriend:" + id)
}
func (s *stubAPI) DeclineFriendRequest(ctx context.Context, id, token string) error {
	return s.record("declinefriend:" + id)
}
func (s *stubAPI) AcceptTeamInvite(ctx context.Context, id, token string) error {
	return s.record("acceptteam:" + id)
}
func (s *stubAPI) DeclineTeamInvite(ctx context.Context, id, token string) error {
	return s.record("declineteam:" + id)
}
func (s *stubAPI) AcceptPartyInvite(ctx context.Context, id, token string) error {
	return s.record("acceptparty:" + id)
}
func (s *stubAPI) DeclinePartyInvite(ctx context.Context, id, token string) error {
	return s.record("declineparty:" + id)
}

// captureNotifier collects shown notifications for assertions.
type captureNotifier struct {
	mu    sync.Mutex
	shown []notify.Notification
}

func (n *captureNotifier) Show(notif notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, notif)
	return nil
}

func (n *captureNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.shown {
		out = append(out, s.Title)
	}
	return out
}

func newTestRouter() *router.Router {
	return router.New(router.Config{TickInterval: time.Hour}, router.Hooks{}, nil, nil)
}

func TestAcceptMatchClosesModalAndCallsBackend(t *testing.T) {
	api := &stubAPI{}
	notifier := &captureNotifier{}
	r := newTestRouter()
	defer r.Shutdown()
	r.Apply(context.Background(), event.PendingEvent{Kind: event.KindMatchFound, MatchID: "m1"})

	d := New(api, r, notifier, func() string { return "tok" }, nil)
	err := d.AcceptMatch(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, []string{"accept:m1:tok"}, api.recorded())
	assert.Nil(t, r.Snapshot().MatchAcceptance)
	assert.Equal(t, []string{"Match accepted"}, notifier.titles())
}

func TestAcceptMatchFailureStillClosesModal(t *testing.T) {
	api := &stubAPI{err: errors.New("409 already declined")}
	notifier := &captureNotifier{}
	r := newTestRouter()
	defer r.Shutdown()
	r.Apply(context.Background(), event.PendingEvent{Kind: event.KindMatchFound, MatchID: "m1"})

	d := New(api, r, notifier, nil, nil)
	err := d.AcceptMatch(context.Background(), "m1")
	require.Error(t, err)

	// The modal never reopens on failure; the user sees an error toast.
	assert.Nil(t, r.Snapshot().MatchAcceptance)
	assert.Equal(t, []string{"Match acceptance failed"}, notifier.titles())
	// Exactly one backend call; no retry.
	assert.Len(t, api.recorded(), 1)
}

func TestDeclineMatchNoConfirmationOnSuccess(t *testing.T) {
	api := &stubAPI{}
	notifier := &captureNotifier{}
	d := New(api, newTestRouter(), notifier, nil, nil)

	require.NoError(t, d.DeclineMatch(context.Background(), "m1"))
	assert.Equal(t, []string{"decline:m1"}, api.recorded())
	assert.Empty(t, notifier.titles())
}

func TestBanMapPassesLeaderAndSlug(t *testing.T) {
	api := &stubAPI{}
	d := New(api, nil, &captureNotifier{}, nil, nil)

	require.NoError(t, d.BanMap(context.Background(), "m1", "p2", "dust2"))
	assert.Equal(t, []string{"ban:m1:p2:dust2"}, api.recorded())
}

func TestBanMapFailureShowsErrorOnce(t *testing.T) {
	api := &stubAPI{err: errors.New("not your turn")}
	notifier := &captureNotifier{}
	d := New(api, nil, notifier, nil, nil)

	err := d.BanMap(context.Background(), "m1", "p2", "dust2")
	require.Error(t, err)
	assert.Len(t, api.recorded(), 1)
	assert.Equal(t, []string{"Ban failed"}, notifier.titles())
}

func TestBanTimeoutReported(t *testing.T) {
	api := &stubAPI{}
	d := New(api, nil, &captureNotifier{}, nil, nil)
	require.NoError(t, d.BanTimeout(context.Background(), "m1"))
	assert.Equal(t, []string{"bantimeout:m1"}, api.recorded())
}

func TestHandleActionRoutesNotificationButtons(t *testing.T) {
	cases := []struct {
		action string
		data   map[string]string
		want   string
	}{
		{"accept_match", map[string]string{"matchId": "m1"}, "accept:m1:"},
		{"decline_match", map[string]string{"matchId": "m1"}, "decline:m1"},
		{"accept_friend", map[string]string{"requestId": "fr1"}, "acceptfriend:fr1"},
		{"decline_friend", map[string]string{"requestId": "fr1"}, "declinefriend:fr1"},
		{"accept_team", map[string]string{"inviteId": "ti1"}, "acceptteam:ti1"},
		{"decline_team", map[string]string{"inviteId": "ti1"}, "declineteam:ti1"},
		{"accept_party", map[string]string{"partyId": "pa1"}, "acceptparty:pa1"},
		{"decline_party", map[string]string{"partyId": "pa1"}, "declineparty:pa1"},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			api := &stubAPI{}
			d := New(api, nil, &captureNotifier{}, nil, nil)
			require.NoError(t, d.HandleAction(context.Background(), tc.action, tc.data))
			assert.Equal(t, []string{tc.want}, api.recorded())
		})
	}
}

func TestHandleActionIgnoresViewAndClose(t *testing.T) {
	api := &stubAPI{}
	d := New(api, nil, &captureNotifier{}, nil, nil)
	require.NoError(t, d.HandleAction(context.Background(), "view", nil))
	require.NoError(t, d.HandleAction(context.Background(), "close", nil))
	require.NoError(t, d.HandleAction(context.Background(), "", nil))
	assert.Empty(t, api.recorded())
}

func TestHandleActionMissingIDErrors(t *testing.T) {
	api := &stubAPI{}
	d := New(api, nil, &captureNotifier{}, nil, nil)
	err := d.HandleAction(context.Background(), "accept_friend", map[string]string{})
	require.Error(t, err)
	assert.Empty(t, api.recorded())
}
