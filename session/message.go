package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrNotOpen     = errors.New("connection not open")
	ErrThrottled   = errors.New("command on cooldown")
	ErrRejected    = errors.New("command rejected")
)

// ProtocolError reports an inbound message that could not be parsed.
type ProtocolError struct {
	Kind string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("protocol error: %v", e.Err)
	}
	return fmt.Sprintf("protocol error in %q: %v", e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Inbound message kinds.
const (
	KindJoined       = "joined"
	KindGameState    = "gameState"
	KindGameStarted  = "gameStarted"
	KindPowerupSpawn = "powerupSpawn"
	KindLeft         = "left"
	KindPong         = "pong"
	KindPlayerInfo   = "playerInfo"
	KindError        = "error"
)

// Outbound message kinds.
const (
	KindJoinLobby          = "joinLobby"
	KindJoinGame           = "joinGame"
	KindStartGame          = "startGame"
	KindRestartGame        = "restartGame"
	KindMove               = "move"
	KindPlaceBomb          = "placeBomb"
	KindRemoteDetonate     = "remoteDetonate"
	KindDash               = "dash"
	KindUpdatePlayerName   = "updatePlayerName"
	KindLeaveLobby         = "leaveLobby"
	KindRequestLobbyUpdate = "requestLobbyUpdate"
	KindPing               = "ping"
)

// Inbound is one decoded message from the peer. The concrete type is one of
// the message structs below.
type Inbound interface {
	Kind() string
}

type Joined struct{}

type GameState struct {
	Snapshot *Snapshot
}

type GameStarted struct{}

type PowerupSpawn struct {
	Powerups map[string]*Powerup
}

// LeftLobby confirms the peer removed us from the lobby.
type LeftLobby struct{}

type Pong struct{}

type PlayerInfo struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// RemoteError is an error string sent by the peer.
type RemoteError struct {
	Message string
}

func (Joined) Kind() string       { return KindJoined }
func (GameState) Kind() string    { return KindGameState }
func (GameStarted) Kind() string  { return KindGameStarted }
func (PowerupSpawn) Kind() string { return KindPowerupSpawn }
func (LeftLobby) Kind() string    { return KindLeft }
func (Pong) Kind() string         { return KindPong }
func (PlayerInfo) Kind() string   { return KindPlayerInfo }
func (RemoteError) Kind() string  { return KindError }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one envelope. Unknown kinds return an error wrapping
// ErrUnknownKind; malformed envelopes or payloads return a *ProtocolError.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Err: err}
	}
	if env.Type == "" {
		return nil, &ProtocolError{Err: errors.New("missing type")}
	}
	bad := func(err error) (Inbound, error) {
		return nil, &ProtocolError{Kind: env.Type, Err: err}
	}

	switch env.Type {
	case KindJoined:
		return Joined{}, nil
	case KindGameStarted:
		return GameStarted{}, nil
	case KindLeft:
		return LeftLobby{}, nil
	case KindPong:
		return Pong{}, nil
	case KindGameState:
		if len(env.Payload) == 0 || string(env.Payload) == "null" {
			return bad(errors.New("empty snapshot"))
		}
		var snap Snapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return bad(err)
		}
		return GameState{Snapshot: &snap}, nil
	case KindPowerupSpawn:
		var p map[string]*Powerup
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return bad(err)
			}
		}
		return PowerupSpawn{Powerups: p}, nil
	case KindPlayerInfo:
		var info PlayerInfo
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &info); err != nil {
				return bad(err)
			}
		}
		return info, nil
	case KindError:
		var msg string
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			// some rejections arrive as {"message": "..."}
			var obj struct {
				Message string `json:"message"`
				Error   string `json:"error"`
			}
			if json.Unmarshal(env.Payload, &obj) != nil {
				return bad(err)
			}
			msg = obj.Message
			if msg == "" {
				msg = obj.Error
			}
		}
		if msg == "" {
			return bad(errors.New("empty error message"))
		}
		return RemoteError{Message: msg}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
}

// Encode wraps payload in an outbound envelope. A nil payload is sent as an
// empty object.
func Encode(kind string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{kind, payload})
}

type lobbyPlayer struct {
	LobbyID  string `json:"lobbyId"`
	PlayerID string `json:"playerId"`
}

type joinLobby struct {
	LobbyID    string `json:"lobbyId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type lobbyOnly struct {
	LobbyID string `json:"lobbyId"`
}

type move struct {
	Direction Direction `json:"direction"`
	PlayerID  string    `json:"playerId"`
}

type playerOnly struct {
	PlayerID string `json:"playerId"`
}

type dash struct {
	Direction Direction `json:"direction"`
}

type playerName struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}
