package main

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// GenerateID returns a fresh connection id
func GenerateID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// round1 rounds to one decimal place for the wire
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// normalizeName drops all whitespace and lowercases, so "Player 2" and
// "player2" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// truncateRunes cuts s to at most n characters
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// unixMillis converts a time to epoch milliseconds (0 for the zero time)
func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
