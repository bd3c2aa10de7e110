package room

import (
	"math/rand"
	"sort"
	"sync"
)

// Registry is the in-memory map of live rooms. State is ephemeral; nothing
// survives a restart.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Create makes a room with the given creator as host and first player.
func (reg *Registry) Create(hostConnID, hostPlayerID, hostName string, settings Settings) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id := randomCode(5)
	for reg.rooms[id] != nil {
		id = randomCode(5)
	}
	r := &Room{
		ID:       id,
		HostID:   hostConnID,
		Settings: settings,
		Status:   StatusWaiting,
		Players: []*Player{
			{ID: hostConnID, PlayerID: hostPlayerID, Name: hostName, Connected: true},
		},
	}
	reg.rooms[id] = r
	return r
}

func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r := reg.rooms[id]
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
}

// Summary is one row of the public lobby listing.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Status      Status `json:"status"`
	Type        string `json:"type"`
}

// Summaries lists all rooms, ordered by id for stable output.
func (reg *Registry) Summaries() []Summary {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		snap := r.Snapshot()
		connected := 0
		for _, p := range snap.Players {
			if p.Connected {
				connected++
			}
		}
		out = append(out, Summary{
			ID:          snap.ID,
			Name:        snap.Settings.Name,
			PlayerCount: connected,
			MaxPlayers:  snap.Settings.MaxPlayers,
			Status:      snap.Status,
			Type:        string(snap.Settings.Type),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
