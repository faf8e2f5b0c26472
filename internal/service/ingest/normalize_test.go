package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"accents and punctuation", "  José  DELA-CRUZ, Jr. ", "jose delacruz jr"},
		{"collapse whitespace", "MARIA \t  santos", "maria santos"},
		{"apostrophe and diaeresis", "Zoë O'Brien", "zoe obrien"},
		{"tilde", "Ñoño", "nono"},
		{"fullwidth letters", "Ａｎａ", "ana"},
		{"digits kept", "Unit 7 Guard", "unit 7 guard"},
		{"symbols removed", "Ana ★ Reyes", "ana reyes"},
		{"empty", "", ""},
		{"only punctuation", " .,- ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	for _, in := range []string{"José Dela-Cruz", "MARIA  SANTOS", "Zoë O'Brien"} {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once))
	}
}
