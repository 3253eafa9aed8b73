package trie

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"

	"academicchain/storage"
)

// ComputeRoot builds an ephemeral Merkle Patricia trie over the supplied
// key/value pairs and returns its root hash. Keys are hashed with keccak256
// before insertion so the root only depends on the set of pairs, never on
// insertion order. Empty values are skipped because the trie treats them as
// deletions.
func ComputeRoot(entries map[string][]byte) (common.Hash, error) {
	backend := memorydb.New()
	db := rawdb.NewDatabase(backend)
	trieDB := triedb.NewDatabase(db, triedb.HashDefaults)
	tr, err := gethtrie.New(gethtrie.TrieID(gethtypes.EmptyRootHash), trieDB)
	if err != nil {
		return common.Hash{}, err
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := entries[key]
		if len(value) == 0 {
			continue
		}
		if err := tr.Update(crypto.Keccak256([]byte(key)), value); err != nil {
			return common.Hash{}, err
		}
	}
	return tr.Hash(), nil
}

// StateRoot walks every key of the database under prefix and returns the trie
// root committing to that keyspace.
func StateRoot(db storage.Database, prefix []byte) (common.Hash, error) {
	entries := make(map[string][]byte)
	if err := db.Iterate(prefix, func(key, value []byte) bool {
		entries[string(key)] = value
		return true
	}); err != nil {
		return common.Hash{}, err
	}
	return ComputeRoot(entries)
}
