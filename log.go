package stm

import "github.com/rs/zerolog"

// Manager's embedded logger defaults to zerolog.Nop(), so the hot
// read/write path pays nothing unless a caller opts in via WithLogger.
// Logging only ever happens at transaction commit/abort boundaries and on
// allocation exhaustion — never inside the per-word read loop,
// which must stay allocation-free and branch-light for the lock-free
// read protocol to be worth anything.

func (m *Manager) logCommit(outcome commitOutcome) {
	ev := m.logger.Debug()
	if !outcome.committed {
		ev = m.logger.Info()
	}
	ev.Bool("committed", outcome.committed).
		Bool("fast_path", outcome.fastPath).
		Int("reason", int(outcome.reason)).
		Int("write_set_size", outcome.writeSetSize).
		Msg("stm: commit")
}

func (m *Manager) logAllocExhausted() {
	m.logger.Warn().Msg("stm: region has no free blocks")
}
