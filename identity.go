package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"

	"arenaclient/session"
)

const identityFile = "identity.json"

type storedIdentity struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
	LobbyID    string `json:"currentLobbyId,omitempty"`
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newPlayerID returns "player_" followed by nine base-36 characters.
func newPlayerID(r *rand.Rand) string {
	b := make([]byte, 0, len("player_")+9)
	b = append(b, "player_"...)
	for range 9 {
		b = append(b, base36[r.IntN(len(base36))])
	}
	return string(b)
}

func identityPath() string { return filepath.Join(baseDir, identityFile) }

// loadIdentity reads the stored identity, minting and saving a player id
// the first time.
func loadIdentity(path string, r *rand.Rand) (session.Identity, error) {
	var st storedIdentity
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &st); err != nil {
			logWarn("identity: %v", err)
			st = storedIdentity{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return session.Identity{}, err
	}
	id := session.Identity{PlayerID: st.PlayerID, PlayerName: st.PlayerName, LobbyID: st.LobbyID}
	if id.PlayerID == "" {
		id.PlayerID = newPlayerID(r)
		if err := saveIdentity(path, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

func saveIdentity(path string, id session.Identity) error {
	data, err := json.MarshalIndent(storedIdentity{
		PlayerID:   id.PlayerID,
		PlayerName: id.PlayerName,
		LobbyID:    id.LobbyID,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
