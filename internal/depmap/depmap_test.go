package depmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"post.md", "post.md"},
		{"./post.md", "post.md"},
		{"././dir/post.md", "dir/post.md"},
		{"dir/./post.md", "dir/./post.md"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "normalize %q", tt.in)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	_, err := Normalize("")
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = Normalize("   ")
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestAddDependency(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", []string{"b.md"}))

	deps, ok := m.GetDependencies("a.md", true)
	require.True(t, ok)
	assert.Equal(t, []string{"b.md"}, deps)
	assert.Equal(t, []string{"a.md"}, m.GetDependantsFor("b.md"))
}

func TestAddDependency_NormalizesBothSides(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("./a.md", []string{"./b.md"}))

	assert.True(t, m.HasDependency("a.md", "b.md", true))
	assert.True(t, m.HasDependency("./a.md", "./b.md", true))
}

func TestAddDependency_SelfIsNoOp(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", []string{"a.md"}))

	deps, ok := m.GetDependencies("a.md", true)
	require.True(t, ok)
	assert.Empty(t, deps)
}

func TestAddDependency_NilListRegistersNode(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", nil))

	deps, ok := m.GetDependencies("a.md", true)
	assert.True(t, ok)
	assert.Empty(t, deps)
}

func TestAddDependency_InvalidNode(t *testing.T) {
	m := NewMap(nil)
	assert.ErrorIs(t, m.AddDependency("", []string{"b.md"}), ErrInvalidNode)
	assert.ErrorIs(t, m.AddDependency("a.md", []string{""}), ErrInvalidNode)
}

func TestGetDependencies_UnknownSentinel(t *testing.T) {
	m := NewMap(nil)
	deps, ok := m.GetDependencies("never-seen.md", true)
	assert.False(t, ok)
	assert.Nil(t, deps)

	require.NoError(t, m.AddDependency("known.md", nil))
	deps, ok = m.GetDependencies("known.md", true)
	assert.True(t, ok)
	assert.NotNil(t, deps)
	assert.Empty(t, deps)
}

func TestResetNode(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", []string{"b.md"}))
	require.NoError(t, m.AddDependency("c.md", []string{"a.md"}))

	require.NoError(t, m.ResetNode("a.md"))

	deps, ok := m.GetDependencies("a.md", true)
	require.True(t, ok)
	assert.Empty(t, deps)
	// Dependants survive: c.md's claim on a.md is c.md's fact, not a.md's.
	assert.Equal(t, []string{"c.md"}, m.GetDependantsFor("a.md"))
}

func TestResetNode_Unknown(t *testing.T) {
	m := NewMap(nil)
	assert.NoError(t, m.ResetNode("never-seen.md"))
}

func TestReset(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", []string{"b.md"}))
	m.OverrideCollectionNames([]string{"featured"})

	m.Reset()

	_, ok := m.GetDependencies("a.md", true)
	assert.False(t, ok)
	assert.False(t, m.isConfigCollection("featured"))
}

func TestGetDependantsFor_Unknown(t *testing.T) {
	m := NewMap(nil)
	assert.Empty(t, m.GetDependantsFor("never-seen.md"))
}
