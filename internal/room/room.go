// Package room tracks the lobby side of the server: who is in which room,
// who hosts it, its settings and contributed themes, and the slot holding
// the room's running game session. Rooms are independent; each one guards
// its own state with its own mutex.
package room

import (
	"errors"
	"sync"

	"github.com/blankslate-party/blankslate/internal/catalog"
	"github.com/blankslate-party/blankslate/internal/game"
)

var (
	ErrNotFound         = errors.New("room not found")
	ErrFull             = errors.New("room is full")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNoGame           = errors.New("no game in progress")
	ErrNotEnoughPlayers = errors.New("not enough players")
)

// MinPlayers is the smallest roster a game can start with.
const MinPlayers = 3

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

// Player is one room member. ID is the current connection id (changes on
// reconnect), PlayerID is the stable opaque id the game engine scores by.
type Player struct {
	ID        string `json:"id"`
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type Settings struct {
	Name           string    `json:"name"`
	MaxPlayers     int       `json:"maxPlayers"`
	SelectedThemes []string  `json:"selectedThemes"`
	Type           game.Mode `json:"type"`
}

type Room struct {
	mu sync.Mutex

	ID          string
	HostID      string // connection id of the current host
	Players     []*Player
	Settings    Settings
	Contributed []catalog.Contributed
	Status      Status
	Session     *game.Session
}

// Join adds a player, or reconnects them when the stable player id is
// already known (a page reload shows up as a fresh connection).
func (r *Room) Join(connID, playerID, name string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		if p.PlayerID == playerID {
			p.ID = connID
			p.Connected = true
			if name != "" {
				p.Name = name
			}
			return p, nil
		}
	}
	if r.Status == StatusPlaying {
		return nil, ErrGameInProgress
	}
	if r.Settings.MaxPlayers > 0 && len(r.Players) >= r.Settings.MaxPlayers {
		return nil, ErrFull
	}
	p := &Player{ID: connID, PlayerID: playerID, Name: name, Connected: true}
	r.Players = append(r.Players, p)
	return p, nil
}

// Disconnect marks the player for that connection as gone without removing
// them; their seat, hand and score survive a reconnect. Hosting migrates to
// the first connected player. Returns the player, whether the host changed,
// and whether anyone connected remains.
func (r *Room) Disconnect(connID string) (p *Player, hostChanged, anyLeft bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cand := range r.Players {
		if cand.ID == connID {
			p = cand
			cand.Connected = false
			break
		}
	}
	hostChanged = r.migrateHostLocked()
	return p, hostChanged, r.connectedCountLocked() > 0
}

// Leave removes the player entirely. Returns the removed player, whether
// the host changed and whether anyone remains at all.
func (r *Room) Leave(connID string) (p *Player, hostChanged, anyLeft bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cand := range r.Players {
		if cand.ID == connID {
			p = cand
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			break
		}
	}
	hostChanged = r.migrateHostLocked()
	return p, hostChanged, len(r.Players) > 0
}

func (r *Room) migrateHostLocked() bool {
	for _, p := range r.Players {
		if p.Connected && p.ID == r.HostID {
			return false
		}
	}
	for _, p := range r.Players {
		if p.Connected {
			r.HostID = p.ID
			return true
		}
	}
	return false
}

func (r *Room) connectedCountLocked() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (r *Room) IsHost(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return connID == r.HostID
}

// PlayerByConn resolves a connection to its room member.
func (r *Room) PlayerByConn(connID string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		if p.ID == connID {
			return p, true
		}
	}
	return nil, false
}

// ActivePlayers returns the connected roster in seating order, in the
// engine's terms.
func (r *Room) ActivePlayers() []game.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]game.Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected {
			out = append(out, game.Player{ID: p.PlayerID, Name: p.Name})
		}
	}
	return out
}

// UpdateSettings replaces the room settings. Rejected while a game runs so
// a session's theme selection stays what it was started with.
func (r *Room) UpdateSettings(s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status == StatusPlaying {
		return ErrGameInProgress
	}
	r.Settings = s
	return nil
}

// Contribute attaches a player-submitted theme, replacing any previous one
// with the same (name, contributor) identity.
func (r *Room) Contribute(c catalog.Contributed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.Contributed {
		if old.Name == c.Name && old.ContributorID == c.ContributorID {
			r.Contributed[i] = c
			return
		}
	}
	r.Contributed = append(r.Contributed, c)
}

// StartGame creates the room's game session from its current settings and
// connected roster. Requires at least MinPlayers connected players and no
// session already running.
func (r *Room) StartGame(cat *catalog.Catalog) (*game.Session, []game.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Session != nil || r.Status == StatusPlaying {
		return nil, nil, ErrGameInProgress
	}
	active := make([]game.Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected {
			active = append(active, game.Player{ID: p.PlayerID, Name: p.Name})
		}
	}
	if len(active) < MinPlayers {
		return nil, nil, ErrNotEnoughPlayers
	}
	cfg := game.Config{
		Mode:        r.Settings.Type,
		Themes:      game.ParseThemeRefs(r.Settings.SelectedThemes, catalog.DefaultTheme),
		Contributed: append([]catalog.Contributed{}, r.Contributed...),
	}
	r.Session = game.Start(cat, cfg, active)
	r.Status = StatusPlaying
	return r.Session, active, nil
}

// GetSession returns the running session, if any.
func (r *Room) GetSession() (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Session == nil {
		return nil, ErrNoGame
	}
	return r.Session, nil
}

// Reset discards the session and returns the room to the waiting state.
func (r *Room) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Session = nil
	r.Status = StatusWaiting
}

// Snapshot is the lobby-facing copy of room state, safe to send to clients.
type Snapshot struct {
	ID          string                `json:"id"`
	HostID      string                `json:"hostId"`
	Players     []Player              `json:"players"`
	Settings    Settings              `json:"settings"`
	Contributed []catalog.Contributed `json:"contributedThemes"`
	Status      Status                `json:"status"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	players := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, *p)
	}
	return Snapshot{
		ID:          r.ID,
		HostID:      r.HostID,
		Players:     players,
		Settings:    r.Settings,
		Contributed: append([]catalog.Contributed{}, r.Contributed...),
		Status:      r.Status,
	}
}
