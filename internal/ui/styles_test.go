package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func restoreStyles(t *testing.T) {
	t.Helper()
	accent, muted, bold, accentBold, color := Accent, Muted, Bold, AccentBold, accentColor
	t.Cleanup(func() {
		Accent, Muted, Bold, AccentBold, accentColor = accent, muted, bold, accentBold, color
	})
}

func TestNormalizeAccentColor(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"", "", false},
		{"none", "", false},
		{"OFF", "", false},
		{"default", "", false},
		{"39", "39", true},
		{"  244 ", "244", true},
		{"256", "", false},
		{"-1", "", false},
		{"#7aa2f7", "#7aa2f7", true},
		{"#ABC", "#aabbcc", true},
		{"#zzzzzz", "", false},
		{"blue", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeAccentColor(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestConfigureThemeAccentColor(t *testing.T) {
	restoreStyles(t)

	ConfigureTheme("39")
	got, ok := AccentColor()
	assert.True(t, ok)
	assert.Equal(t, "39", got)

	ConfigureTheme("none")
	_, ok = AccentColor()
	assert.False(t, ok)
}

func TestDisableColorRendersPlainText(t *testing.T) {
	restoreStyles(t)
	ConfigureTheme("#ff0000")

	DisableColor()
	assert.Equal(t, "/data/a.txt", FilePath("/data/a.txt"))
	assert.Equal(t, "Statements", Header("Statements"))
	_, ok := AccentColor()
	assert.False(t, ok)
}
