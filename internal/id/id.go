// Package id generates and checks the prefixed identifiers used for forum
// entities, e.g. "topic-V1StGXR8_Z5jdHi6B-myT".
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PrefixTopic        = "topic"
	PrefixReply        = "reply"
	PrefixNotification = "notif"
)

// suffixLen is the gonanoid default length.
const suffixLen = 21

// Generate returns prefix joined to a fresh nanoid. It only fails when the
// system entropy source does.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("nanoid for %s: %w", prefix, err)
	}
	return prefix + "-" + suffix, nil
}

// MustGenerate panics where Generate would fail. Fixtures and seeders only.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return v
}

// Valid reports whether s has the shape Generate produces for prefix.
// Services treat malformed IDs as missing entities.
func Valid(prefix, s string) bool {
	suffix, ok := strings.CutPrefix(s, prefix+"-")
	if !ok || len(suffix) != suffixLen {
		return false
	}
	return strings.IndexFunc(suffix, func(r rune) bool { return !urlSafe(r) }) < 0
}

func urlSafe(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}
