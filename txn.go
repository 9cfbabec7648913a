package stm

import "errors"

// Atomically is a convenience helper, not part of the engine's core
// contract: it runs fn against a fresh UpdateTxn on m's region and retries
// the whole transaction if commit fails validation or lock acquisition.
// The engine itself never decides to retry a conflicting transaction on
// the caller's behalf — only the caller knows whether fn is idempotent
// enough to repeat safely.
//
// fn decides what to do about a Read that returns ErrAborted: it may
// return the error itself to have Atomically retry with a fresh start
// timestamp, or it may swallow it and return nil, in which case
// Atomically commits only what fn buffered after the aborted Read (the
// abort has already cleared both sets, so anything written before it is
// discarded; usually the commit is empty) — a "just skip this round"
// pattern for callers that
// would rather move on than spin on a hot conflict. Any non-nil,
// non-abort error stops the retry loop and is returned to the caller
// without committing.
func Atomically(m *Manager, fn func(*UpdateTxn) error) error {
	for {
		h := m.Begin(false)
		if err := fn(h.up); err != nil {
			if errors.Is(err, ErrAborted) {
				continue
			}
			return err
		}
		outcome := h.up.commit()
		m.observeCommit(outcome)
		if outcome.committed {
			return nil
		}
		// Conflict: loop and retry with a fresh start timestamp.
	}
}
