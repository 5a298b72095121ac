package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function; manually editing statePrefixes is not required.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixAccount    = registerPrefix("acct:")
	prefixGame       = registerPrefix("game:")
	prefixStats      = registerPrefix("stats:")
	prefixAllowed    = registerPrefix("allow:")
	prefixTournament = registerPrefix("tour:")
	prefixWithdrawal = registerPrefix("wd:")
	prefixMeta       = registerPrefix("meta:")
)

var (
	keyPolicy      = prefixMeta + "policy"
	keyGameCounter = prefixMeta + "game_counter"
)

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation. The buffer is
// guarded so RPC readers can query while the block producer writes.
type StateDB struct {
	mu        sync.RWMutex
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	s.mu.RLock()
	if s.deleted[key] {
		s.mu.RUnlock()
		return nil, core.ErrNotFound
	}
	v, ok := s.dirty[key]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirty, key)
	s.deleted[key] = true
}

func (s *StateDB) getJSON(key string, v any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *StateDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, data)
	return nil
}

func (s *StateDB) getUint(key string) (uint64, error) {
	data, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(data), 10, 64)
}

func (s *StateDB) setUint(key string, v uint64) {
	s.set(key, []byte(strconv.FormatUint(v, 10)))
}

// ---- Account ----

func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	var acc core.Account
	err := s.getJSON(prefixAccount+address, &acc)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil // zero-value account
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.setJSON(prefixAccount+acc.Address, acc)
}

// ---- Game ----

// gameKey zero-pads the id so games iterate in creation order.
func gameKey(id uint64) string {
	return fmt.Sprintf("%s%020d", prefixGame, id)
}

func (s *StateDB) GetGame(id uint64) (*core.Game, error) {
	var g core.Game
	if err := s.getJSON(gameKey(id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *StateDB) SetGame(g *core.Game) error {
	return s.setJSON(gameKey(g.ID), g)
}

func (s *StateDB) NextGameID() (uint64, error) {
	n, err := s.getUint(keyGameCounter)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return 0, fmt.Errorf("read game counter: %w", err)
	}
	n++
	s.setUint(keyGameCounter, n)
	return n, nil
}

// ---- Player stats ----

func (s *StateDB) GetPlayerStats(address string) (*core.PlayerStats, error) {
	var st core.PlayerStats
	err := s.getJSON(prefixStats+address, &st)
	if errors.Is(err, core.ErrNotFound) {
		return &core.PlayerStats{Address: address}, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StateDB) SetPlayerStats(st *core.PlayerStats) error {
	return s.setJSON(prefixStats+st.Address, st)
}

// ---- Policy ----

func (s *StateDB) GetPolicy() (*core.Policy, error) {
	var p core.Policy
	if err := s.getJSON(keyPolicy, &p); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return &p, nil
}

func (s *StateDB) SetPolicy(p *core.Policy) error {
	return s.setJSON(keyPolicy, p)
}

// ---- Allowed assets ----

func (s *StateDB) GetAssetMinimum(asset string) (uint64, error) {
	return s.getUint(prefixAllowed + asset)
}

func (s *StateDB) SetAssetMinimum(asset string, minStake uint64) error {
	s.setUint(prefixAllowed+asset, minStake)
	return nil
}

func (s *StateDB) DeleteAssetMinimum(asset string) error {
	s.del(prefixAllowed + asset)
	return nil
}

// ---- Tournament authorities ----

func (s *StateDB) GetTournamentAuthority(authority string) (string, error) {
	data, err := s.get(prefixTournament + authority)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *StateDB) SetTournamentAuthority(authority, tournamentID string) error {
	s.set(prefixTournament+authority, []byte(tournamentID))
	return nil
}

func (s *StateDB) DeleteTournamentAuthority(authority string) error {
	s.del(prefixTournament + authority)
	return nil
}

// ---- Pending withdrawals ----

func (s *StateDB) GetPendingWithdrawal(address string) (uint64, error) {
	n, err := s.getUint(prefixWithdrawal + address)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	return n, err
}

// SetPendingWithdrawal stores amount; zero removes the record.
func (s *StateDB) SetPendingWithdrawal(address string, amount uint64) error {
	if amount == 0 {
		s.del(prefixWithdrawal + address)
		return nil
	}
	s.setUint(prefixWithdrawal+address, amount)
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so that subsequent writes cannot corrupt them.
func (s *StateDB) RevertToSnapshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete world state.
// Persisted entries under the registered prefixes are merged with the write
// buffer, deleted keys dropped, and the sorted pairs hashed with
// length-prefix encoding. It does not flush, so it is safe before signing.
func (s *StateDB) ComputeRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([][]byte, 0, 2*len(keys))
	for _, k := range keys {
		fields = append(fields, []byte(k), merged[k])
	}
	return crypto.HashFields(fields...)
}

// Commit atomically flushes the write buffer to the underlying DB via a
// batch and then clears it. Call ComputeRoot() before signing the block,
// then call Commit() after the block is safely stored.
func (s *StateDB) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}

// Discard drops every uncommitted write. Used when a block fails to execute.
func (s *StateDB) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
}
