package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/indexer"
	"github.com/tolelom/tolarena/vm"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())
	case "getBlock":
		return h.getBlock(req)
	case "getBalance":
		return h.getBalance(req)
	case "getGame":
		return h.getGame(req)
	case "getPlayerStats":
		return h.getPlayerStats(req)
	case "getPolicy":
		return h.getPolicy(req)
	case "getAssetMinimum":
		return h.getAssetMinimum(req)
	case "getTournamentAuthority":
		return h.getTournamentAuthority(req)
	case "getPendingWithdrawal":
		return h.getPendingWithdrawal(req)
	case "getPayoutsByRecipient":
		return h.getPayoutsByRecipient(req)
	case "getTournamentGames":
		return h.getTournamentGames(req)
	case "sendTx":
		return h.sendTx(req)
	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// decodeParams unmarshals req.Params into v and checks that required
// string fields are set.
func decodeParams(req Request, v any, required map[string]*string) *Response {
	if err := json.Unmarshal(req.Params, v); err != nil {
		resp := errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		return &resp
	}
	for name, field := range required {
		if *field == "" {
			resp := errResponse(req.ID, CodeInvalidParams, name+" is required")
			return &resp
		}
	}
	return nil
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if len(req.Params) > 0 {
		if resp := decodeParams(req, &params, nil); resp != nil {
			return *resp
		}
	}

	var block *core.Block
	var err error
	switch {
	case params.Hash != "":
		block, err = h.bc.GetBlock(params.Hash)
	case params.Height != nil:
		block, err = h.bc.GetBlockByHeight(*params.Height)
	default:
		block = h.bc.Tip()
	}
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	if block == nil {
		return errResponse(req.ID, CodeNotFound, "no block found")
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"address": &params.Address}); resp != nil {
		return *resp
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	return okResponse(req.ID, map[string]any{
		"address":       params.Address,
		"balance":       acc.Balance,
		"tokens":        acc.Tokens,
		"nonce":         acc.Nonce,
		"reject_native": acc.RejectNative,
	})
}

func (h *Handler) getGame(req Request) Response {
	var params struct {
		ID uint64 `json:"id"`
	}
	if resp := decodeParams(req, &params, nil); resp != nil {
		return *resp
	}
	g, err := h.state.GetGame(params.ID)
	if err != nil {
		return stateErrResponse(req.ID, fmt.Errorf("game %d: %w", params.ID, err))
	}
	return okResponse(req.ID, g)
}

func (h *Handler) getPlayerStats(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"address": &params.Address}); resp != nil {
		return *resp
	}
	st, err := h.state.GetPlayerStats(params.Address)
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	return okResponse(req.ID, st)
}

func (h *Handler) getPolicy(req Request) Response {
	pol, err := h.state.GetPolicy()
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	return okResponse(req.ID, pol)
}

func (h *Handler) getAssetMinimum(req Request) Response {
	var params struct {
		Asset string `json:"asset"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"asset": &params.Asset}); resp != nil {
		return *resp
	}
	minStake, err := h.state.GetAssetMinimum(params.Asset)
	if err != nil {
		return stateErrResponse(req.ID, fmt.Errorf("asset %q: %w", params.Asset, err))
	}
	return okResponse(req.ID, map[string]any{"asset": params.Asset, "min_stake": minStake})
}

func (h *Handler) getTournamentAuthority(req Request) Response {
	var params struct {
		Authority string `json:"authority"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"authority": &params.Authority}); resp != nil {
		return *resp
	}
	tid, err := h.state.GetTournamentAuthority(params.Authority)
	if err != nil {
		return stateErrResponse(req.ID, fmt.Errorf("authority %s: %w", params.Authority, err))
	}
	return okResponse(req.ID, map[string]any{"authority": params.Authority, "tournament_id": tid})
}

func (h *Handler) getPendingWithdrawal(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"address": &params.Address}); resp != nil {
		return *resp
	}
	owed, err := h.state.GetPendingWithdrawal(params.Address)
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "amount": owed})
}

func (h *Handler) getPayoutsByRecipient(req Request) Response {
	var params struct {
		Recipient string `json:"recipient"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"recipient": &params.Recipient}); resp != nil {
		return *resp
	}
	payouts, err := h.indexer.GetPayoutsByRecipient(params.Recipient)
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	if payouts == nil {
		payouts = []indexer.Payout{}
	}
	return okResponse(req.ID, payouts)
}

func (h *Handler) getTournamentGames(req Request) Response {
	var params struct {
		TournamentID string `json:"tournament_id"`
	}
	if resp := decodeParams(req, &params, map[string]*string{"tournament_id": &params.TournamentID}); resp != nil {
		return *resp
	}
	ids, err := h.indexer.GetTournamentGames(params.TournamentID)
	if err != nil {
		return stateErrResponse(req.ID, err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	if !vm.Registered(tx.Type) {
		return errResponse(req.ID, CodeTxRejected, fmt.Sprintf("unknown transaction type %q", tx.Type))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeTxRejected, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}
