package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"venusadapter/storage"
)

const worldVersion uint64 = 1

var worldKey = ethcrypto.Keccak256([]byte("ledger:world"))

type entryRecord struct {
	Kind     uint64
	Contract common.Address
	Account  common.Address
	Spender  common.Address
	Slot     common.Hash
	Value    *big.Int
}

type worldRecord struct {
	Version uint64
	Height  uint64
	Entries []entryRecord
}

func (k entryKey) sortKey() []byte {
	buf := make([]byte, 0, 1+20*3+32)
	buf = append(buf, byte(k.kind))
	buf = append(buf, k.contract.Bytes()...)
	buf = append(buf, k.account.Bytes()...)
	buf = append(buf, k.spender.Bytes()...)
	return append(buf, k.slot.Bytes()...)
}

// Root returns a keccak digest over the encoded world, stable across runs.
func (l *Ledger) Root() (common.Hash, error) {
	encoded, err := l.encode()
	if err != nil {
		return common.Hash{}, err
	}
	return ethcrypto.Keccak256Hash(encoded), nil
}

func (l *Ledger) encode() ([]byte, error) {
	keys := make([]entryKey, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].sortKey(), keys[j].sortKey()) < 0
	})
	record := worldRecord{Version: worldVersion, Height: l.height, Entries: make([]entryRecord, 0, len(keys))}
	for _, key := range keys {
		record.Entries = append(record.Entries, entryRecord{
			Kind:     uint64(key.kind),
			Contract: key.contract,
			Account:  key.account,
			Spender:  key.spender,
			Slot:     key.slot,
			Value:    l.entries[key].ToBig(),
		})
	}
	return rlp.EncodeToBytes(record)
}

// Commit writes the world to db and forgets the journal.
func (l *Ledger) Commit(db storage.Database) error {
	if db == nil {
		return fmt.Errorf("state: database required")
	}
	encoded, err := l.encode()
	if err != nil {
		return fmt.Errorf("state: encode world: %w", err)
	}
	if err := db.Put(worldKey, encoded); err != nil {
		return fmt.Errorf("state: persist world: %w", err)
	}
	l.Finalise()
	return nil
}

// LoadLedger restores a ledger committed to db. The boolean reports whether a
// committed world was found; an empty ledger is returned otherwise.
func LoadLedger(db storage.Database) (*Ledger, bool, error) {
	if db == nil {
		return nil, false, fmt.Errorf("state: database required")
	}
	raw, err := db.Get(worldKey)
	if errors.Is(err, storage.ErrNotFound) {
		return NewLedger(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("state: load world: %w", err)
	}
	var record worldRecord
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, false, fmt.Errorf("state: decode world: %w", err)
	}
	if record.Version != worldVersion {
		return nil, false, fmt.Errorf("state: unsupported world version %d", record.Version)
	}
	ledger := NewLedger()
	ledger.height = record.Height
	for _, entry := range record.Entries {
		if entry.Kind < uint64(kindNative) || entry.Kind > uint64(kindSlot) {
			return nil, false, fmt.Errorf("state: unknown entry kind %d", entry.Kind)
		}
		value, overflow := uint256.FromBig(entry.Value)
		if overflow {
			return nil, false, fmt.Errorf("state: entry value overflows 256 bits")
		}
		key := entryKey{
			kind:     entryKind(entry.Kind),
			contract: entry.Contract,
			account:  entry.Account,
			spender:  entry.Spender,
			slot:     entry.Slot,
		}
		ledger.entries[key] = value
	}
	return ledger, true, nil
}
