package session

import (
	"slices"
	"time"
)

// Tile values on the board.
const (
	TileEmpty    = 0
	TileWall     = 1
	TileSoftWall = 2
)

// Direction is a cardinal facing or move direction.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Delta returns the row and column step for d.
func (d Direction) Delta() (dRow, dCol int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Phase is the round phase reported by the peer.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Buff is an active powerup held by a player.
type Buff struct {
	Type    string    `json:"type"`
	Level   int       `json:"level"`
	EndTime time.Time `json:"endTime"`
}

type Player struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Position      Position         `json:"position"`
	SpawnPosition Position         `json:"spawnPosition"`
	Alive         bool             `json:"alive"`
	BombCount     int              `json:"bombCount"`
	MaxBombs      int              `json:"maxBombs"`
	BombRange     int              `json:"bombRange"`
	IsAI          bool             `json:"isAI"`
	AIDifficulty  string           `json:"aiDifficulty"`
	Slot          int              `json:"slot"`
	Score         int              `json:"score"`
	Powerups      map[string]*Buff `json:"powerups"`
	Shield        bool             `json:"shield"`
	LastDash      time.Time        `json:"lastDash,omitempty"`

	// Facing is inferred on the client from successive snapshots.
	Facing Direction `json:"-"`
}

type Bomb struct {
	ID       string    `json:"id"`
	PlayerID string    `json:"playerId"`
	Position Position  `json:"position"`
	Range    int       `json:"range"`
	PlacedAt time.Time `json:"placedAt"`
}

type Explosion struct {
	ID       string    `json:"id"`
	Position Position  `json:"position"`
	EndTime  time.Time `json:"endTime"`
}

// Powerup types.
const (
	PowerupBombRange = "bomb_range"
	PowerupShield    = "shield"
)

type Powerup struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Level    int       `json:"level"`
	Position Position  `json:"position"`
	EndTime  time.Time `json:"endTime"`
}

// Snapshot is one authoritative arena state. A published snapshot is never
// modified; updates publish a new value.
type Snapshot struct {
	ID         string                `json:"id"`
	LobbyID    string                `json:"lobbyId"`
	Board      [][]int               `json:"board"`
	Players    map[string]*Player    `json:"players"`
	Bombs      map[string]*Bomb      `json:"bombs"`
	Explosions map[string]*Explosion `json:"explosions"`
	Powerups   map[string]*Powerup   `json:"powerups"`
	Phase      Phase                 `json:"status"`
	StartTime  time.Time             `json:"startTime"`
	EndTime    time.Time             `json:"endTime"`
	Winner     string                `json:"winner"`
}

// Rows returns the board height.
func (s *Snapshot) Rows() int { return len(s.Board) }

// Cols returns the board width, taken from the first row.
func (s *Snapshot) Cols() int {
	if len(s.Board) == 0 {
		return 0
	}
	return len(s.Board[0])
}

// Tile returns the tile at row, col and whether it is on the board.
func (s *Snapshot) Tile(row, col int) (int, bool) {
	if row < 0 || row >= len(s.Board) || col < 0 || col >= len(s.Board[row]) {
		return 0, false
	}
	return s.Board[row][col], true
}

// HasStart reports whether the peer sent a start timestamp.
func (s *Snapshot) HasStart() bool {
	return !s.StartTime.IsZero()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ExplosionList returns explosions ordered by id.
func (s *Snapshot) ExplosionList() []*Explosion {
	out := make([]*Explosion, 0, len(s.Explosions))
	for _, k := range sortedKeys(s.Explosions) {
		out = append(out, s.Explosions[k])
	}
	return out
}

// PlayerList returns players ordered by id.
func (s *Snapshot) PlayerList() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, k := range sortedKeys(s.Players) {
		out = append(out, s.Players[k])
	}
	return out
}

// BombList returns bombs ordered by id.
func (s *Snapshot) BombList() []*Bomb {
	out := make([]*Bomb, 0, len(s.Bombs))
	for _, k := range sortedKeys(s.Bombs) {
		out = append(out, s.Bombs[k])
	}
	return out
}

// PowerupList returns powerups ordered by id.
func (s *Snapshot) PowerupList() []*Powerup {
	out := make([]*Powerup, 0, len(s.Powerups))
	for _, k := range sortedKeys(s.Powerups) {
		out = append(out, s.Powerups[k])
	}
	return out
}

// withPowerups returns a shallow copy of s carrying a new powerup set.
func (s *Snapshot) withPowerups(p map[string]*Powerup) *Snapshot {
	cp := *s
	cp.Powerups = p
	return &cp
}

// inferFacing sets Facing on every player in next from the movement since
// prev. A player that did not move keeps its previous facing; new players
// face down.
func inferFacing(prev, next *Snapshot) {
	for id, p := range next.Players {
		if p == nil {
			continue
		}
		var old *Player
		if prev != nil {
			old = prev.Players[id]
		}
		p.Facing = facing(old, p)
	}
}

func facing(old, cur *Player) Direction {
	if old == nil {
		return Down
	}
	dRow := cur.Position.Row - old.Position.Row
	dCol := cur.Position.Col - old.Position.Col
	switch {
	case dRow < 0:
		return Up
	case dRow > 0:
		return Down
	case dCol < 0:
		return Left
	case dCol > 0:
		return Right
	}
	if old.Facing != "" {
		return old.Facing
	}
	return Down
}
