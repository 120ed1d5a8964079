package session

import (
	"fmt"
	"time"
)

// send queues one outbound message on the live connection.
func (s *Session) send(kind string, payload any) error {
	if s.state != Open || s.link == nil {
		return fmt.Errorf("%s: %w", kind, ErrNotOpen)
	}
	data, err := Encode(kind, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	select {
	case s.link.out <- data:
		return nil
	default:
		return fmt.Errorf("%s: outbox full", kind)
	}
}

func (s *Session) JoinLobby() error {
	return s.send(KindJoinLobby, joinLobby{LobbyID: s.id.LobbyID, PlayerID: s.id.PlayerID, PlayerName: s.id.PlayerName})
}

func (s *Session) JoinGame() error {
	return s.send(KindJoinGame, lobbyOnly{LobbyID: s.id.LobbyID})
}

func (s *Session) StartGame() error {
	return s.send(KindStartGame, lobbyPlayer{LobbyID: s.id.LobbyID, PlayerID: s.id.PlayerID})
}

func (s *Session) RestartGame() error {
	return s.send(KindRestartGame, lobbyPlayer{LobbyID: s.id.LobbyID, PlayerID: s.id.PlayerID})
}

func (s *Session) LeaveLobby() error {
	return s.send(KindLeaveLobby, lobbyPlayer{LobbyID: s.id.LobbyID, PlayerID: s.id.PlayerID})
}

func (s *Session) RequestLobbyUpdate() error {
	return s.send(KindRequestLobbyUpdate, lobbyOnly{LobbyID: s.id.LobbyID})
}

func (s *Session) Ping() error {
	return s.send(KindPing, nil)
}

// UpdatePlayerName renames the local player locally and on the server.
func (s *Session) UpdatePlayerName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ErrRejected)
	}
	s.id.PlayerName = name
	if s.hooks.Identity != nil {
		s.hooks.Identity(s.id)
	}
	return s.send(KindUpdatePlayerName, playerName{PlayerID: s.id.PlayerID, PlayerName: name})
}

func (s *Session) RemoteDetonate() error {
	return s.send(KindRemoteDetonate, nil)
}

func (s *Session) Dash(dir Direction) error {
	if !dir.Valid() {
		return fmt.Errorf("dash %q: %w", dir, ErrRejected)
	}
	return s.send(KindDash, dash{Direction: dir})
}

// self returns the local player if it is in the snapshot and alive.
func (s *Session) self() (*Snapshot, *Player, error) {
	if s.state != Open {
		return nil, nil, ErrNotOpen
	}
	snap := s.snap.Load()
	if snap == nil {
		return nil, nil, fmt.Errorf("no game state: %w", ErrRejected)
	}
	p := snap.Players[s.id.PlayerID]
	if p == nil || !p.Alive {
		return nil, nil, fmt.Errorf("player not alive: %w", ErrRejected)
	}
	return snap, p, nil
}

// Move asks the server to step the local player one tile. Moves the server
// would refuse anyway are rejected here: into walls, off the board, onto
// another player's bomb, during a countdown or inside the cooldown.
func (s *Session) Move(now time.Time, dir Direction) error {
	if !dir.Valid() {
		return fmt.Errorf("move %q: %w", dir, ErrRejected)
	}
	snap, p, err := s.self()
	if err != nil {
		return err
	}
	if s.inputLocked {
		return fmt.Errorf("countdown running: %w", ErrRejected)
	}
	dr, dc := dir.Delta()
	row, col := p.Position.Row+dr, p.Position.Col+dc
	if row < 0 || row >= snap.Rows() || col < 0 || col >= snap.Cols() {
		return fmt.Errorf("off board: %w", ErrRejected)
	}
	if t, _ := snap.Tile(row, col); t != TileEmpty {
		return fmt.Errorf("tile blocked: %w", ErrRejected)
	}
	for _, b := range snap.Bombs {
		if b.Position.Row == row && b.Position.Col == col && b.PlayerID != s.id.PlayerID {
			return fmt.Errorf("bomb in the way: %w", ErrRejected)
		}
	}
	if !s.moveLimiter.AllowN(now, 1) {
		return ErrThrottled
	}
	return s.send(KindMove, move{Direction: dir, PlayerID: s.id.PlayerID})
}

// PlaceBomb drops a bomb under the local player.
func (s *Session) PlaceBomb(now time.Time) error {
	if _, _, err := s.self(); err != nil {
		return err
	}
	if !s.bombLimiter.AllowN(now, 1) {
		return ErrThrottled
	}
	return s.send(KindPlaceBomb, playerOnly{PlayerID: s.id.PlayerID})
}
