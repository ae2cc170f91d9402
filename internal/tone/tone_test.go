package tone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimize(t *testing.T) {
	tests := []struct {
		name string
		text string
		tone Tone
		want string
	}{
		{name: "neutral trims", text: "  We should ship Tuesday.  ", tone: Neutral, want: "We should ship Tuesday."},
		{name: "executive", text: "We should ship Tuesday.", tone: Executive, want: "Summary: We should ship Tuesday."},
		{name: "friendly lowercases first char", text: " Thanks for the update", tone: Friendly, want: "Hey, thanks for the update"},
		{name: "friendly unicode", text: "Über cool", tone: Friendly, want: "Hey, über cool"},
		{name: "direct removes hedges", text: "I think we should ship. i THINK so.", tone: Direct, want: "we should ship. so."},
		{name: "direct keeps words containing the phrase", text: "Hi thinker", tone: Direct, want: "Hi thinker"},
		{name: "direct only hedge keeps input", text: "I think", tone: Direct, want: "I think"},
		{name: "empty stays empty", text: "   ", tone: Executive, want: ""},
		{name: "unknown tone is neutral", text: " x ", tone: Tone("loud"), want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Optimize(tt.text, tt.tone))
		})
	}
}

func TestOptimize_Total(t *testing.T) {
	inputs := []string{"a", "I think", " Hello ", "ÄÖÜ", "i think i think"}
	for _, tone := range Tones {
		for _, in := range inputs {
			assert.NotEmpty(t, Optimize(in, tone), "tone %s input %q", tone, in)
		}
	}
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		in   string
		want Tone
	}{
		{"friendly", Friendly},
		{" Executive ", Executive},
		{"DIRECT", Direct},
		{"neutral", Neutral},
		{"", Neutral},
		{"sarcastic", Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTone(tt.in))
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("direct"))
	assert.False(t, Valid("Direct"))
	assert.False(t, Valid(""))
}
