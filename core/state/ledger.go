package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"venusadapter/core/events"
	"venusadapter/core/types"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the available balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrSupplyUnderflow is returned when a burn exceeds a token's total supply.
	ErrSupplyUnderflow = errors.New("state: total supply underflow")
)

type entryKind uint8

const (
	kindNative entryKind = iota + 1
	kindBalance
	kindAllowance
	kindSupply
	kindSlot
)

// entryKey addresses one uint256 cell of world state. Unused fields stay zero.
type entryKey struct {
	kind     entryKind
	contract common.Address
	account  common.Address
	spender  common.Address
	slot     common.Hash
}

// Ledger is the in-process world state the adapter and its collaborators run
// against: native balances, token balances and allowances, token supplies and
// contract storage slots. Every mutation is journaled so a call can be undone
// with RevertToSnapshot. Ledger is not safe for concurrent use.
type Ledger struct {
	entries map[entryKey]*uint256.Int
	height  uint64
	events  []*types.Event

	journal        *journal
	validRevisions []revision
	nextRevisionID int
}

// NewLedger returns an empty ledger at height zero.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[entryKey]*uint256.Int),
		journal: newJournal(),
	}
}

// SlotKey derives a storage slot from a name and optional key material.
func SlotKey(name string, parts ...[]byte) common.Hash {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(name))
	data = append(data, parts...)
	return ethcrypto.Keccak256Hash(data...)
}

func (l *Ledger) get(key entryKey) *uint256.Int {
	if v, ok := l.entries[key]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (l *Ledger) set(key entryKey, value *uint256.Int) {
	prev, existed := l.entries[key]
	l.journal.append(valueChange{key: key, prev: prev, existed: existed})
	if value == nil || value.IsZero() {
		delete(l.entries, key)
		return
	}
	l.entries[key] = new(uint256.Int).Set(value)
}

func (l *Ledger) add(key entryKey, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	next, overflow := new(uint256.Int).AddOverflow(l.get(key), amount)
	if overflow {
		panic(fmt.Sprintf("state: balance overflow for kind %d", key.kind))
	}
	l.set(key, next)
}

func (l *Ledger) sub(key entryKey, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	current := l.get(key)
	if current.Lt(amount) {
		return ErrInsufficientBalance
	}
	l.set(key, current.Sub(current, amount))
	return nil
}

// --- native currency ---

func (l *Ledger) NativeBalance(addr common.Address) *uint256.Int {
	return l.get(entryKey{kind: kindNative, account: addr})
}

// AddNative credits native currency out of thin air (genesis funding, faucet).
func (l *Ledger) AddNative(addr common.Address, amount *uint256.Int) {
	l.add(entryKey{kind: kindNative, account: addr}, amount)
}

func (l *Ledger) SubNative(addr common.Address, amount *uint256.Int) error {
	return l.sub(entryKey{kind: kindNative, account: addr}, amount)
}

// TransferNative moves native currency and records a transfer event.
func (l *Ledger) TransferNative(from, to common.Address, amount *uint256.Int) error {
	if err := l.SubNative(from, amount); err != nil {
		return err
	}
	l.AddNative(to, amount)
	l.Emit(events.NativeTransfer{From: from, To: to, Amount: amount})
	return nil
}

// --- tokens ---

func (l *Ledger) TokenBalance(token, holder common.Address) *uint256.Int {
	return l.get(entryKey{kind: kindBalance, contract: token, account: holder})
}

// MoveToken debits from and credits to without any token-level policy.
func (l *Ledger) MoveToken(token, from, to common.Address, amount *uint256.Int) error {
	if err := l.sub(entryKey{kind: kindBalance, contract: token, account: from}, amount); err != nil {
		return err
	}
	l.add(entryKey{kind: kindBalance, contract: token, account: to}, amount)
	return nil
}

func (l *Ledger) MintToken(token, to common.Address, amount *uint256.Int) {
	l.add(entryKey{kind: kindSupply, contract: token}, amount)
	l.add(entryKey{kind: kindBalance, contract: token, account: to}, amount)
}

func (l *Ledger) BurnToken(token, from common.Address, amount *uint256.Int) error {
	if err := l.sub(entryKey{kind: kindBalance, contract: token, account: from}, amount); err != nil {
		return err
	}
	if err := l.sub(entryKey{kind: kindSupply, contract: token}, amount); err != nil {
		return ErrSupplyUnderflow
	}
	return nil
}

func (l *Ledger) TotalSupply(token common.Address) *uint256.Int {
	return l.get(entryKey{kind: kindSupply, contract: token})
}

func (l *Ledger) Allowance(token, owner, spender common.Address) *uint256.Int {
	return l.get(entryKey{kind: kindAllowance, contract: token, account: owner, spender: spender})
}

func (l *Ledger) SetAllowance(token, owner, spender common.Address, amount *uint256.Int) {
	l.set(entryKey{kind: kindAllowance, contract: token, account: owner, spender: spender}, amount)
}

// --- contract storage ---

func (l *Ledger) Slot(contract common.Address, slot common.Hash) *uint256.Int {
	return l.get(entryKey{kind: kindSlot, contract: contract, slot: slot})
}

func (l *Ledger) SetSlot(contract common.Address, slot common.Hash, value *uint256.Int) {
	l.set(entryKey{kind: kindSlot, contract: contract, slot: slot}, value)
}

// --- blocks and events ---

func (l *Ledger) BlockNumber() uint64 {
	return l.height
}

// AdvanceBlocks mines n empty blocks.
func (l *Ledger) AdvanceBlocks(n uint64) {
	l.journal.append(heightChange{prev: l.height})
	l.height += n
}

// Emit appends an event to the log. Reverted calls drop their events.
func (l *Ledger) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	rendered := evt.Event()
	if rendered == nil {
		return
	}
	l.journal.append(eventAppended{})
	l.events = append(l.events, rendered)
}

// EventCount returns the current length of the event log.
func (l *Ledger) EventCount() int {
	return len(l.events)
}

// EventsSince returns copies of the events recorded after mark.
func (l *Ledger) EventsSince(mark int) []*types.Event {
	if mark < 0 {
		mark = 0
	}
	if mark >= len(l.events) {
		return nil
	}
	out := make([]*types.Event, 0, len(l.events)-mark)
	for _, evt := range l.events[mark:] {
		out = append(out, evt.Clone())
	}
	return out
}

// TrimEvents drops the in-memory event log once its consumers have copied it.
func (l *Ledger) TrimEvents() {
	l.Finalise()
	l.events = nil
}
