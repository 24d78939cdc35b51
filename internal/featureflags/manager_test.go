package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.On("always"))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("broken", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.On("canary"), "partial rollout is off without a user")
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,Messages=ON, contributors_cache = 20% ,reputation_reconcile=off,=on ")

	assert.Equal(t, []string{ContributorsCache, Messages, ReputationReconcile}, m.Names())
	assert.True(t, m.On(Messages))
	assert.False(t, m.On(ReputationReconcile))

	snap := m.Snapshot(123)
	assert.Len(t, snap, 3)
	assert.True(t, snap[Messages])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(Messages, 1))
	assert.Empty(t, m.Names())
	assert.Empty(t, m.Snapshot(1))
}
