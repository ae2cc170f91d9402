// Package tone rewrites outgoing drafts with a small set of tone presets.
package tone

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tone is a rewrite preset.
type Tone string

const (
	Neutral   Tone = "neutral"
	Friendly  Tone = "friendly"
	Direct    Tone = "direct"
	Executive Tone = "executive"
)

// Tones lists every preset.
var Tones = []Tone{Neutral, Friendly, Direct, Executive}

var (
	hedgeRe      = regexp.MustCompile(`(?i)\bi think\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ParseTone maps s to a preset. Unknown or empty values are Neutral.
func ParseTone(s string) Tone {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tones {
		if t == known {
			return t
		}
	}
	return Neutral
}

// Valid reports whether s names a preset exactly.
func Valid(s string) bool {
	for _, known := range Tones {
		if Tone(s) == known {
			return true
		}
	}
	return false
}

// Optimize rewrites text with the given preset. Empty input stays empty.
func Optimize(text string, t Tone) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return trimmed
	}

	switch t {
	case Direct:
		s := hedgeRe.ReplaceAllString(trimmed, "")
		s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
		if s == "" {
			return trimmed
		}
		return s
	case Friendly:
		return "Hey, " + lowerFirst(trimmed)
	case Executive:
		return "Summary: " + trimmed
	default:
		return trimmed
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
