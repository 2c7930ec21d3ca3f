// Package cli is the interactive gophcheck front-end.
//
// The REPL signs the configured user in to the messaging platform
// (login, code, password), runs number checks against the stored session
// (check) and reports quota usage (status). Each command prints the
// server's message verbatim on failure.
package cli
