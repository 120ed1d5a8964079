package main

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var playerIDPattern = regexp.MustCompile(`^player_[0-9a-z]{9}$`)

func TestNewPlayerID(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	seen := map[string]bool{}
	for range 50 {
		id := newPlayerID(r)
		if !playerIDPattern.MatchString(id) {
			t.Fatalf("bad id %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 50 {
		t.Fatalf("ids repeated: %d unique", len(seen))
	}
}

func TestLoadIdentityMintsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), identityFile)
	r := rand.New(rand.NewPCG(3, 4))

	id, err := loadIdentity(path, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !playerIDPattern.MatchString(id.PlayerID) {
		t.Fatalf("bad id %q", id.PlayerID)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("identity not saved: %v", err)
	}

	id.PlayerName = "Ann"
	id.LobbyID = "lobby_1"
	if err := saveIdentity(path, id); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := loadIdentity(path, r)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != id {
		t.Fatalf("reloaded %+v, want %+v", again, id)
	}
}
