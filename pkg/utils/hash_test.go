package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckSecret(t *testing.T) {
	hash, err := HashSecret("open-sesame")
	require.NoError(t, err)
	require.NotEqual(t, "open-sesame", hash)

	require.True(t, CheckSecret("open-sesame", hash))
	require.False(t, CheckSecret("wrong", hash))
	require.False(t, CheckSecret("open-sesame", "not-a-hash"))
}
