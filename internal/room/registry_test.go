package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blankslate-party/blankslate/internal/catalog"
	"github.com/blankslate-party/blankslate/internal/game"
)

func newRoom(t *testing.T) (*Registry, *Room) {
	t.Helper()
	reg := NewRegistry()
	r := reg.Create("conn-host", "player-host", "Hosty", Settings{
		Name:           "test room",
		MaxPlayers:     8,
		SelectedThemes: []string{"classic"},
		Type:           game.ModeChat,
	})
	return reg, r
}

func TestCreateAndGet(t *testing.T) {
	reg, r := newRoom(t)

	require.Len(t, r.ID, 5)
	assert.Equal(t, StatusWaiting, r.Status)
	assert.True(t, r.IsHost("conn-host"))

	got, err := reg.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = reg.Get("NOPE!")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinAndReconnect(t *testing.T) {
	_, r := newRoom(t)

	p, err := r.Join("conn-a", "player-a", "Alice")
	require.NoError(t, err)
	assert.True(t, p.Connected)

	// Same stable player id on a new connection reconnects, not duplicates.
	p2, err := r.Join("conn-a2", "player-a", "Alice")
	require.NoError(t, err)
	assert.Same(t, p, p2)
	assert.Equal(t, "conn-a2", p2.ID)
	assert.Len(t, r.Snapshot().Players, 2)
}

func TestJoinFullRoom(t *testing.T) {
	_, r := newRoom(t)
	r.Settings.MaxPlayers = 2

	_, err := r.Join("conn-a", "player-a", "Alice")
	require.NoError(t, err)
	_, err = r.Join("conn-b", "player-b", "Bob")
	assert.ErrorIs(t, err, ErrFull)
}

func TestDisconnectMigratesHost(t *testing.T) {
	_, r := newRoom(t)
	_, err := r.Join("conn-a", "player-a", "Alice")
	require.NoError(t, err)

	p, hostChanged, anyLeft := r.Disconnect("conn-host")
	require.NotNil(t, p)
	assert.False(t, p.Connected)
	assert.True(t, hostChanged)
	assert.True(t, anyLeft)
	assert.True(t, r.IsHost("conn-a"))

	// Seat survives; reconnect restores it.
	assert.Len(t, r.Snapshot().Players, 2)
	assert.Len(t, r.ActivePlayers(), 1)
}

func TestLeaveEmptiesRoom(t *testing.T) {
	_, r := newRoom(t)
	_, _, anyLeft := r.Leave("conn-host")
	assert.False(t, anyLeft)
	assert.Empty(t, r.Snapshot().Players)
}

func TestStartGameLifecycle(t *testing.T) {
	_, r := newRoom(t)
	_, err := r.Join("conn-a", "player-a", "Alice")
	require.NoError(t, err)

	// Two connected players are not enough.
	cat, err := catalog.Embedded()
	require.NoError(t, err)
	_, _, err = r.StartGame(cat)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = r.Join("conn-b", "player-b", "Bob")
	require.NoError(t, err)

	sess, active, err := r.StartGame(cat)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Len(t, active, 3)
	assert.Equal(t, StatusPlaying, r.Status)

	// Settings are frozen while playing; a second start is rejected.
	assert.ErrorIs(t, r.UpdateSettings(Settings{}), ErrGameInProgress)
	_, _, err = r.StartGame(cat)
	assert.ErrorIs(t, err, ErrGameInProgress)

	got, err := r.GetSession()
	require.NoError(t, err)
	assert.Same(t, sess, got)

	r.Reset()
	assert.Equal(t, StatusWaiting, r.Status)
	_, err = r.GetSession()
	assert.ErrorIs(t, err, ErrNoGame)
}

func TestContributeReplacesSameIdentity(t *testing.T) {
	_, r := newRoom(t)
	r.Contribute(catalog.Contributed{Name: "mine", ContributorID: "u1", FillerCards: []string{"a"}})
	r.Contribute(catalog.Contributed{Name: "mine", ContributorID: "u2", FillerCards: []string{"b"}})
	r.Contribute(catalog.Contributed{Name: "mine", ContributorID: "u1", FillerCards: []string{"c"}})

	snap := r.Snapshot()
	require.Len(t, snap.Contributed, 2)
	assert.Equal(t, []string{"c"}, snap.Contributed[0].FillerCards)
}

func TestSummaries(t *testing.T) {
	reg, r := newRoom(t)
	_, err := r.Join("conn-a", "player-a", "Alice")
	require.NoError(t, err)
	r.Disconnect("conn-a")

	sums := reg.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, r.ID, sums[0].ID)
	assert.Equal(t, "test room", sums[0].Name)
	assert.Equal(t, 1, sums[0].PlayerCount, "summaries count connected players only")
	assert.Equal(t, StatusWaiting, sums[0].Status)
}
