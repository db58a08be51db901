package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		ComputeHash("hello world"))

	// Consistency
	assert.Equal(t, ComputeHash("test"), ComputeHash("test"))
	assert.NotEqual(t, ComputeHash("a"), ComputeHash("b"))
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("some text"))
	assert.ErrorIs(t, ValidateText(""), ErrEmptyText)
}

func TestValidateBatch(t *testing.T) {
	assert.NoError(t, ValidateBatch([]string{"a", "b"}))
	assert.ErrorIs(t, ValidateBatch(nil), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatch([]string{"a", ""}), ErrInvalidInput)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	cache := NewCache(10)
	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  "test",
		Model:     "test-model",
		Hash:      "h",
	}
	cache.Set("h", emb)

	got, ok := cache.Get("h")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(10)
	cache.Set("a", &Embedding{Hash: "a"})
	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
