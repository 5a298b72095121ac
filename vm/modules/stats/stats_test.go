package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/internal/testutil"
)

func TestRecordSeatAndResult(t *testing.T) {
	state := testutil.NewStateDB()
	g := &core.Game{ID: 3, Player1: "ann", Player2: "ben"}
	require.NoError(t, RecordSeat(state, "ann", 3))
	require.NoError(t, RecordSeat(state, "ben", 3))
	require.NoError(t, RecordResult(state, g, "ben"))

	ann, err := state.GetPlayerStats("ann")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ann.GamesPlayed)
	assert.Equal(t, uint64(1), ann.GamesLost)
	assert.Equal(t, []uint64{3}, ann.GameIDs)

	ben, err := state.GetPlayerStats("ben")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ben.GamesWon)
	assert.Zero(t, ben.GamesLost)
}

func TestRecordDrawAndCancel(t *testing.T) {
	state := testutil.NewStateDB()
	g := &core.Game{ID: 1, Player1: "ann", Player2: "ben"}
	require.NoError(t, RecordResult(state, g, core.NoWinner))
	require.NoError(t, RecordCancel(state, []string{"ann"}))

	ann, err := state.GetPlayerStats("ann")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ann.GamesDrawn)
	assert.Equal(t, uint64(1), ann.GamesCancelled)

	ben, err := state.GetPlayerStats("ben")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ben.GamesDrawn)
	assert.Zero(t, ben.GamesCancelled)
}
