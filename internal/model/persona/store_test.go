package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreKeepsOrderAndFirstDuplicate(t *testing.T) {
	items := []Persona{
		{ID: "luka", Name: "루카"},
		{ID: "bora", Name: "보라"},
		{ID: "luka", Name: "중복"},
	}
	store := NewMemoryStore(items)
	items[0].Name = "changed"

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "루카", list[0].Name, "store copies its input")

	p, ok := store.FindByID("luka")
	require.True(t, ok)
	assert.Equal(t, "루카", p.Name)

	_, ok = store.FindByID("missing")
	assert.False(t, ok)
}
