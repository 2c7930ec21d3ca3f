// Package phone normalizes, validates and groups phone numbers in E.164
// style ("+" followed by digits).
package phone

import (
	"regexp"
	"strings"
)

// Bounds of the canonical rule applied to numbers submitted for checking.
const (
	MinDigits = 8
	MaxDigits = 15
)

// Bounds of the looser rule used by Clean for pasted contact lists.
const cleanMinDigits = 7

var (
	stripRe = regexp.MustCompile(`[^0-9+]`)
	loginRe = regexp.MustCompile(`^\+\d{1,15}$`)
)

// Normalize drops everything except digits and '+', then prepends '+'
// when it is missing.
func Normalize(raw string) string {
	n := stripRe.ReplaceAllString(raw, "")
	if !strings.HasPrefix(n, "+") {
		n = "+" + n
	}
	return n
}

func validDigits(n string, min, max int) bool {
	if !strings.HasPrefix(n, "+") {
		return false
	}
	digits := n[1:]
	if len(digits) < min || len(digits) > max {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Valid reports whether an already normalized number has between
// MinDigits and MaxDigits digits after the '+'.
func Valid(n string) bool {
	return validDigits(n, MinDigits, MaxDigits)
}

// ValidLogin checks the number a user signs in with: '+' then 1 to 15
// digits, surrounding spaces ignored.
func ValidLogin(raw string) bool {
	return loginRe.MatchString(strings.TrimSpace(raw))
}

// Clean normalizes every entry, keeps those with 7 to 15 digits and drops
// repeats. The first occurrence wins, so input order is preserved.
func Clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, r := range raw {
		n := Normalize(r)
		if !validDigits(n, cleanMinDigits, MaxDigits) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	return out
}

// SplitList splits free text on commas, semicolons and whitespace.
func SplitList(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
}

// Chunk splits items into consecutive groups of at most size elements.
// The returned slices share the backing array of items.
func Chunk(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}

	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
