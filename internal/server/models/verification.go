package models

import "github.com/dmitrijs2005/gophcheck/internal/common"

// VerificationResult partitions the numbers of one verification run.
// Every raw entry lands in exactly one of Registered or Unregistered,
// except entries dropped because the quota ran out, which are listed in
// Skipped instead.
type VerificationResult struct {
	RunID        string
	Registered   []string
	Unregistered []string
	// Failed lists numbers of chunks that still failed after every
	// attempt. They are also present in Unregistered.
	Failed  []string
	Skipped []string

	ChecksDone int
	Remaining  int
	// Revoked is set when the run exhausted the quota and the credential
	// was removed.
	Revoked bool
}

// InvalidFormat tags a raw entry that failed validation.
func InvalidFormat(raw string) string {
	return raw + common.InvalidFormatSuffix
}
