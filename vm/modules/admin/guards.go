package admin

import (
	"errors"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/vm"
)

// Capability predicates shared by every module. Each returns the loaded
// policy so callers can keep using it without a second read.

// RequireOwner fails unless the sender is the policy owner.
func RequireOwner(ctx *vm.Context) (*core.Policy, error) {
	p, err := ctx.State.GetPolicy()
	if err != nil {
		return nil, err
	}
	if ctx.Tx.From != p.Owner {
		return nil, fmt.Errorf("%w: owner only", core.ErrUnauthorized)
	}
	return p, nil
}

// RequireOracleOrOwner fails unless the sender is the oracle or the owner.
func RequireOracleOrOwner(ctx *vm.Context) (*core.Policy, error) {
	p, err := ctx.State.GetPolicy()
	if err != nil {
		return nil, err
	}
	if ctx.Tx.From != p.Oracle && ctx.Tx.From != p.Owner {
		return nil, fmt.Errorf("%w: oracle or owner only", core.ErrUnauthorized)
	}
	return p, nil
}

// RequireParticipant fails unless the sender is seated in g.
func RequireParticipant(ctx *vm.Context, g *core.Game) error {
	if !g.IsParticipant(ctx.Tx.From) {
		return fmt.Errorf("%w: not a participant of game %d", core.ErrUnauthorized, g.ID)
	}
	return nil
}

// RequireTournamentAuthority returns the tournament the sender is delegated
// to manage.
func RequireTournamentAuthority(ctx *vm.Context) (string, error) {
	tid, err := ctx.State.GetTournamentAuthority(ctx.Tx.From)
	if errors.Is(err, core.ErrNotFound) {
		return "", fmt.Errorf("%w: not a tournament authority", core.ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	return tid, nil
}
