// Package testutil builds in-memory ledgers for tests across the module.
// Never import this in production code.
package testutil

import (
	"github.com/tolelom/tolarena/storage"
)

// NewMemDB opens a LevelDB held entirely in memory.
func NewMemDB() storage.DB {
	db, err := storage.NewMemLevelDB()
	if err != nil {
		panic(err)
	}
	return db
}

// NewMemBlockStore returns a block store over a fresh in-memory LevelDB.
func NewMemBlockStore() *storage.LevelBlockStore {
	return storage.NewLevelBlockStore(NewMemDB())
}

// NewStateDB returns a StateDB over a fresh in-memory LevelDB.
func NewStateDB() *storage.StateDB {
	return storage.NewStateDB(NewMemDB())
}
