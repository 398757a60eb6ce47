// Package merge implements last-write-wins reconciliation for synced records.
//
// A record carries a client-supplied logical timestamp. The stored version is
// replaced only by a strictly newer write; an equal timestamp is treated as a
// resend of the stored write. Deletions are ordinary writes whose payload marks
// the record as a tombstone, so they follow exactly the same comparison.
package merge

// Record is anything that can take part in a last-write-wins comparison.
type Record interface {
	// Timestamp returns the record's updated_at in Unix milliseconds.
	Timestamp() int64
}

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDiscarded Outcome = "discarded"
)

// OutcomeOf maps the applied flag returned by Reconcile to its label.
func OutcomeOf(applied bool) Outcome {
	if applied {
		return OutcomeApplied
	}
	return OutcomeDiscarded
}

// Reconcile decides which of existing and incoming survives.
//
// With no existing record the incoming one is accepted. Otherwise incoming
// wins only when its timestamp is strictly greater; on a tie the existing
// record is kept, which makes retransmission of the same write a no-op.
func Reconcile[R Record](existing *R, incoming R) (R, bool) {
	if existing == nil {
		return incoming, true
	}
	if (*existing).Timestamp() >= incoming.Timestamp() {
		return *existing, false
	}
	return incoming, true
}
