package ws

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blankslate-party/blankslate/internal/catalog"
	"github.com/blankslate-party/blankslate/internal/config"
	"github.com/blankslate-party/blankslate/internal/game"
	"github.com/blankslate-party/blankslate/internal/room"
)

func testCatalog() *catalog.Catalog {
	fillers := make([]string, 0, 35)
	for i := 0; i < 35; i++ {
		fillers = append(fillers, fmt.Sprintf("card-%02d", i))
	}
	return &catalog.Catalog{Themes: map[string]catalog.Theme{
		"classic": {JudgeCards: []string{"Why ____?"}, FillerCards: fillers},
	}}
}

func startedRoom(t *testing.T) (*Server, *room.Room, *game.Session, []game.Player) {
	t.Helper()
	cat := testCatalog()
	rooms := room.NewRegistry()
	srv := New(rooms, cat, config.Config{})

	rm := rooms.Create("conn-a", "p-alice", "Alice", room.Settings{
		MaxPlayers:     8,
		SelectedThemes: []string{"classic"},
		Type:           game.ModeChat,
	})
	_, err := rm.Join("conn-b", "p-bob", "Bob")
	require.NoError(t, err)
	_, err = rm.Join("conn-c", "p-carol", "Carol")
	require.NoError(t, err)

	sess, active, err := rm.StartGame(cat)
	require.NoError(t, err)
	return srv, rm, sess, active
}

func TestLeaveMidGameUnstallsSubmitting(t *testing.T) {
	srv, rm, sess, active := startedRoom(t)

	// Everyone but Carol has submitted; the round waits on her.
	for _, p := range active[:2] {
		hand := sess.Hand(p.ID)
		_, err := sess.SubmitCards(p.ID, hand[:1], active)
		require.NoError(t, err)
	}
	require.Equal(t, game.PhaseSubmitting, sess.GetPhase())

	// Carol leaves on purpose. The departure settling must advance the
	// round against the shrunken roster, same as a dropped connection.
	_, _, anyLeft := rm.Leave("conn-c")
	require.True(t, anyLeft)

	view, ok := srv.settleDeparture(rm)
	require.True(t, ok)
	assert.Equal(t, game.PhaseVoting, view.Phase)
	assert.Equal(t, game.PhaseVoting, sess.GetPhase())
	assert.Len(t, rm.ActivePlayers(), 2)
}

func TestLeaveMidGameUnstallsVoting(t *testing.T) {
	srv, rm, sess, active := startedRoom(t)

	subs := make(map[string]string)
	for _, p := range active {
		hand := sess.Hand(p.ID)
		id, err := sess.SubmitCards(p.ID, hand[:1], active)
		require.NoError(t, err)
		subs[p.ID] = id
	}
	require.NoError(t, sess.SubmitVote("p-alice", subs["p-bob"], active))
	require.NoError(t, sess.SubmitVote("p-bob", subs["p-alice"], active))
	require.Equal(t, game.PhaseVoting, sess.GetPhase())

	_, _, anyLeft := rm.Leave("conn-c")
	require.True(t, anyLeft)

	view, ok := srv.settleDeparture(rm)
	require.True(t, ok)
	assert.Equal(t, game.PhaseResults, view.Phase)
}

func TestSettleDepartureWithoutSession(t *testing.T) {
	rooms := room.NewRegistry()
	srv := New(rooms, testCatalog(), config.Config{})
	rm := rooms.Create("conn-a", "p-alice", "Alice", room.Settings{MaxPlayers: 8})

	view, ok := srv.settleDeparture(rm)
	assert.False(t, ok)
	assert.Nil(t, view)
}
