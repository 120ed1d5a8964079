package main

import (
	"context"
	"testing"

	client "github.com/hugolgst/rich-go/client"

	"arenaclient/session"
)

func TestPresenceUpdatesOnChange(t *testing.T) {
	oldLogin, oldActivity, oldLogout := rpcLogin, rpcActivity, rpcLogout
	defer func() { rpcLogin, rpcActivity, rpcLogout = oldLogin, oldActivity, oldLogout }()

	var sent []client.Activity
	rpcLogin = func(string) error { return nil }
	rpcActivity = func(a client.Activity) error {
		sent = append(sent, a)
		return nil
	}
	rpcLogout = func() {}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := startPresence(ctx, "1234")

	playing := &session.Snapshot{Phase: session.PhasePlaying}
	p.update("lobby_1", playing)
	p.update("lobby_1", playing)
	p.update("", nil)
	if len(sent) != 2 {
		t.Fatalf("activities = %d, want 2", len(sent))
	}
	if sent[0].State != "Lobby lobby_1" || sent[0].Details != "In a round" {
		t.Fatalf("first activity = %#v", sent[0])
	}
	if sent[1].State != "Main menu" || sent[1].Details != "Connecting" {
		t.Fatalf("second activity = %#v", sent[1])
	}
}

func TestPresenceDisabledWithoutAppID(t *testing.T) {
	p := startPresence(context.Background(), "")
	if p.on {
		t.Fatalf("presence enabled without app id")
	}
	var nilPresence *presence
	nilPresence.update("lobby", nil)
}
