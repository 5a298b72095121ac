// Package stats maintains the per-player statistics read model. It has no
// transactions of its own; the game and tournament modules call it as part
// of their state transitions.
package stats

import (
	"github.com/tolelom/tolarena/core"
)

func update(state core.State, addr string, fn func(st *core.PlayerStats)) error {
	st, err := state.GetPlayerStats(addr)
	if err != nil {
		return err
	}
	fn(st)
	return state.SetPlayerStats(st)
}

// RecordSeat counts a new game for addr and appends its id.
func RecordSeat(state core.State, addr string, gameID uint64) error {
	return update(state, addr, func(st *core.PlayerStats) {
		st.GamesPlayed++
		st.GameIDs = append(st.GameIDs, gameID)
	})
}

// RecordResult books a settled game for both players. winner is NoWinner
// for a draw.
func RecordResult(state core.State, g *core.Game, winner string) error {
	if winner == core.NoWinner {
		for _, p := range []string{g.Player1, g.Player2} {
			if err := update(state, p, func(st *core.PlayerStats) { st.GamesDrawn++ }); err != nil {
				return err
			}
		}
		return nil
	}
	if err := update(state, winner, func(st *core.PlayerStats) { st.GamesWon++ }); err != nil {
		return err
	}
	return update(state, g.Opponent(winner), func(st *core.PlayerStats) { st.GamesLost++ })
}

// RecordCancel books a cancellation for each of players.
func RecordCancel(state core.State, players []string) error {
	for _, p := range players {
		if err := update(state, p, func(st *core.PlayerStats) { st.GamesCancelled++ }); err != nil {
			return err
		}
	}
	return nil
}
