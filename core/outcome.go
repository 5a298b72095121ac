package core

import (
	"fmt"
	"math/bits"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tolelom/tolarena/crypto"
)

// Tally counts the turns won by each side and the tied turns.
func Tally(choices []Round) (p1Wins, p2Wins, ties uint32) {
	for _, r := range choices {
		switch {
		case r.Player1.Beats(r.Player2):
			p1Wins++
		case r.Player2.Beats(r.Player1):
			p2Wins++
		default:
			ties++
		}
	}
	return
}

// outcomeTuple is the attested view of an outcome. Fields are encoded as a
// msgpack array so the digest does not depend on field names.
type outcomeTuple struct {
	_msgpack struct{} `msgpack:",as_array"`
	GameID   uint64
	P1Wins   uint32
	P2Wins   uint32
	Ties     uint32
	Winner   string
}

// OutcomeDigest returns the hex SHA-256 digest the oracle signs for an
// outcome: msgpack([gameID, p1Wins, p2Wins, ties, winner]).
func OutcomeDigest(gameID uint64, choices []Round, winner string) (string, error) {
	p1, p2, ties := Tally(choices)
	data, err := msgpack.Marshal(&outcomeTuple{
		GameID: gameID,
		P1Wins: p1,
		P2Wins: p2,
		Ties:   ties,
		Winner: winner,
	})
	if err != nil {
		return "", fmt.Errorf("encode outcome: %w", err)
	}
	return crypto.Hash(data), nil
}

// FeeCut returns floor(amount * bps / 10000) without intermediate overflow.
// bps above BpsDenominator is clamped to a full cut.
func FeeCut(amount, bps uint64) uint64 {
	if bps >= BpsDenominator {
		return amount
	}
	hi, lo := bits.Mul64(amount, bps)
	q, _ := bits.Div64(hi, lo, BpsDenominator)
	return q
}

// AmountAfterCut returns amount minus its fee cut at bps.
func AmountAfterCut(amount, bps uint64) uint64 {
	return amount - FeeCut(amount, bps)
}
