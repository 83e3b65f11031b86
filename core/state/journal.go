package state

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
)

// journalEntry is a modification that can be undone.
type journalEntry interface {
	revert(*Ledger)
}

type journal struct {
	entries []journalEntry
}

func newJournal() *journal {
	return &journal{}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) length() int {
	return len(j.entries)
}

func (j *journal) revert(l *Ledger, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(l)
	}
	j.entries = j.entries[:snapshot]
}

type valueChange struct {
	key     entryKey
	prev    *uint256.Int
	existed bool
}

func (c valueChange) revert(l *Ledger) {
	if !c.existed {
		delete(l.entries, c.key)
		return
	}
	l.entries[c.key] = c.prev
}

type heightChange struct {
	prev uint64
}

func (c heightChange) revert(l *Ledger) {
	l.height = c.prev
}

type eventAppended struct{}

func (eventAppended) revert(l *Ledger) {
	if n := len(l.events); n > 0 {
		l.events = l.events[:n-1]
	}
}

type revision struct {
	id           int
	journalIndex int
}

// Snapshot returns an identifier for the current revision of the state.
func (l *Ledger) Snapshot() int {
	id := l.nextRevisionID
	l.nextRevisionID++
	l.validRevisions = append(l.validRevisions, revision{id, l.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (l *Ledger) RevertToSnapshot(revid int) {
	idx := sort.Search(len(l.validRevisions), func(i int) bool {
		return l.validRevisions[i].id >= revid
	})
	if idx == len(l.validRevisions) || l.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := l.validRevisions[idx].journalIndex

	l.journal.revert(l, snapshot)
	l.validRevisions = l.validRevisions[:idx]
}

// Finalise forgets the journal. Earlier snapshots can no longer be reverted.
func (l *Ledger) Finalise() {
	l.journal = newJournal()
	l.validRevisions = l.validRevisions[:0]
}
