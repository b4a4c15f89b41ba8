package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharacterLevelThreshold(t *testing.T) {
	tests := []struct {
		level int32
		want  int64
	}{
		{1, 100},
		{2, 120},
		{3, 144},
		{4, 172},
		{5, 207},
		{10, 515},
		{0, 100},  // clamped to level 1
		{-5, 100}, // clamped to level 1
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CharacterLevelThreshold(tt.level), "level %d", tt.level)
	}
}

func TestCharacterLevelThreshold_GrowsSlowerThanSessionCurve(t *testing.T) {
	// The service curve (x1.2) and the session curve (x1.5) never
	// reconcile; past level 1 they diverge.
	session := int64(100)
	for level := int32(2); level <= 10; level++ {
		session = int64(float64(session) * 1.5)
		assert.Less(t, CharacterLevelThreshold(level), session,
			"service threshold must stay below session threshold at level %d", level)
	}
}
