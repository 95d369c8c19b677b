package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathMap(t *testing.T) {
	m, err := NewPathMap(map[string]string{"a": "/tmp/a--x.pdf", "b": "/tmp/b--x.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	p, ok := m.Path("a")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/a--x.pdf", p)

	id, ok := m.ID("/tmp/b--x.pdf")
	assert.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestNewPathMap_Collision(t *testing.T) {
	_, err := NewPathMap(map[string]string{"a": "/tmp/same", "b": "/tmp/same"})
	assert.ErrorIs(t, err, ErrPathCollision)
}

func TestPathMap_AddAndRemove(t *testing.T) {
	m, err := NewPathMap(nil)
	require.NoError(t, err)

	require.NoError(t, m.Add("a", "/p1"))
	require.NoError(t, m.Add("a", "/p1"))
	assert.ErrorIs(t, m.Add("b", "/p1"), ErrPathCollision)
	assert.ErrorIs(t, m.Add("", "/p2"), ErrInvalidInput)

	// remapping an id frees its old path
	require.NoError(t, m.Add("a", "/p2"))
	_, ok := m.ID("/p1")
	assert.False(t, ok)
	require.NoError(t, m.Add("b", "/p1"))

	m.Remove("a")
	_, ok = m.Path("a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}
