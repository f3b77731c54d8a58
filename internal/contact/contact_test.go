package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_MultipleHandlesInOrder(t *testing.T) {
	got, ok := Extract("contact @ops_admin1 or @help_desk2")
	assert.True(t, ok)
	assert.Equal(t, "@ops_admin1, @help_desk2", got)
}

func TestExtract_DeduplicatesRepeatedHandles(t *testing.T) {
	got, ok := Extract("@ops_admin1 is the owner, reach @ops_admin1 or @help_desk2")
	assert.True(t, ok)
	assert.Equal(t, "@ops_admin1, @help_desk2", got)
}

func TestExtract_NoHandles(t *testing.T) {
	got, ok := Extract("no handles here")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestExtract_EmptyInput(t *testing.T) {
	_, ok := Extract("")
	assert.False(t, ok)
}

func TestExtract_LengthBounds(t *testing.T) {
	// Four characters after the marker is too short.
	_, ok := Extract("ping @abcd")
	assert.False(t, ok)

	got, ok := Extract("ping @abcde")
	assert.True(t, ok)
	assert.Equal(t, "@abcde", got)
}

func TestExtract_FirstCharMustBeAlphabetic(t *testing.T) {
	_, ok := Extract("id @1admin_contact")
	assert.False(t, ok)
}

func TestExtract_MatchesInsideURLs(t *testing.T) {
	// Anchored-pattern leniency: handles embedded in URLs are extracted too.
	got, ok := Extract("see https://t.me/@promo_channel for details")
	assert.True(t, ok)
	assert.Equal(t, "@promo_channel", got)
}
