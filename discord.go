package main

import (
	"context"
	"time"

	client "github.com/hugolgst/rich-go/client"

	"arenaclient/session"
)

var (
	rpcLogin    = client.Login
	rpcActivity = client.SetActivity
	rpcLogout   = client.Logout
)

// presence mirrors the current lobby and round phase to Discord rich
// presence. A presence that failed to log in stays silent.
type presence struct {
	on      bool
	last    string
	started time.Time
}

func startPresence(ctx context.Context, appID string) *presence {
	p := &presence{}
	if appID == "" {
		return p
	}
	if err := rpcLogin(appID); err != nil {
		logWarn("discord rpc login: %v", err)
		return p
	}
	p.on = true
	p.started = time.Now()
	logout := rpcLogout
	go func() {
		<-ctx.Done()
		logout()
	}()
	return p
}

func presenceDetails(snap *session.Snapshot) string {
	if snap == nil {
		return "Connecting"
	}
	switch snap.Phase {
	case session.PhasePlaying:
		return "In a round"
	case session.PhaseFinished:
		return "Round over"
	}
	return "Waiting for players"
}

// update pushes a new activity when the lobby or phase changed.
func (p *presence) update(lobby string, snap *session.Snapshot) {
	if p == nil || !p.on {
		return
	}
	details := presenceDetails(snap)
	key := lobby + "|" + details
	if key == p.last {
		return
	}
	p.last = key
	state := "Lobby " + lobby
	if lobby == "" {
		state = "Main menu"
	}
	if err := rpcActivity(client.Activity{
		State:   state,
		Details: details,
		Timestamps: &client.Timestamps{
			Start: &p.started,
		},
	}); err != nil {
		logWarn("discord rpc activity: %v", err)
	}
}
