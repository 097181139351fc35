package syncer

import "github.com/abhisek/examdrill/internal/attempt"

// Latest picks the authoritative state between the local and remote copies:
// the one with the strictly later UpdatedAt wins in full. No field-level
// merge is attempted; the payload is one small self-contained document.
// Ties favor local, which is already rendered and avoids visible flicker.
func Latest(local, remote attempt.ProgressState) attempt.ProgressState {
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return remote
	}
	return local
}
