package slugs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "underscores and punctuation", input: "Foo_Bar Baz!", expected: "foo-bar-baz"},
		{name: "already a slug", input: "the-witcher-3", expected: "the-witcher-3"},
		{name: "mixed case", input: "CD PROJEKT RED", expected: "cd-projekt-red"},
		{name: "accents", input: "Café Society", expected: "cafe-society"},
		{name: "colon and apostrophe", input: "Baldur's Gate: Enhanced Edition", expected: "baldurs-gate-enhanced-edition"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Make(tt.input)
			assert.Equal(t, tt.expected, got)
			if got != "" {
				assert.True(t, IsValid(got), "slug %q should be strict", got)
			}
		})
	}
}

func TestMake_NoUnderscoresEver(t *testing.T) {
	for _, input := range []string{"a_b_c", "__lead", "trail__", "Mixed_Case_Title", "Foo＿Bar", "a‗b", "Game: The ＿Sequel", "snake_case＿x"} {
		got := Make(input)
		assert.NotContains(t, got, "_")
		assert.True(t, IsValid(got), "slug %q should be strict", got)
	}
}

func TestMake_TransliteratedUnderscores(t *testing.T) {
	assert.Equal(t, "foo-bar", Make("Foo＿Bar"))
	assert.Equal(t, "a-b", Make("a‗b"))
	assert.Equal(t, "game-the-sequel", Make("Game: The ＿Sequel"))
	assert.Equal(t, "snake-case-x", Make("snake_case＿x"))
}

func TestForGame(t *testing.T) {
	assert.Equal(t, "the-witcher-3-wild-hunt", ForGame("the_witcher_3_wild_hunt", "The Witcher 3"))
	assert.Equal(t, "foo-bar-baz", ForGame("", "Foo_Bar Baz!"))
	assert.Equal(t, "", ForGame("", ""))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("abc-123"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("-abc"))
	assert.False(t, IsValid("abc_def"))
	assert.False(t, IsValid("ABC"))
}
